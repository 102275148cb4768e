package i18n

import (
	"database/sql/driver"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Lang
		ok   bool
	}{
		{"ru", RU, true},
		{"en", EN, true},
		{"en-US", EN, true},
		{"ru-RU", RU, true},
		{"", Default, false},
		{"not a tag!", Default, false},
		{"ja", Default, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := Parse(tt.in)
			require.Equal(t, tt.want, got)
			require.Equal(t, tt.ok, ok)
		})
	}
}

func TestLang_Scan_and_Value(t *testing.T) {
	var l Lang
	require.NoError(t, l.Scan("en"))
	require.Equal(t, EN, l)

	v, err := l.Value()
	require.NoError(t, err)
	require.Equal(t, "en", v)

	var nilLang Lang
	require.NoError(t, nilLang.Scan(nil))
	require.Equal(t, Default, nilLang)

	require.Error(t, nilLang.Scan(42))

	// compile-time interface check
	var _ driver.Valuer = Lang("")
}

func TestLang_ScanText_and_TextValue(t *testing.T) {
	var l Lang
	require.NoError(t, l.ScanText(pgtype.Text{String: "en-GB", Valid: true}))
	require.Equal(t, EN, l)

	text, err := Lang("xx").TextValue()
	require.NoError(t, err)
	require.Equal(t, pgtype.Text{String: string(Default), Valid: true}, text)

	require.NoError(t, l.ScanText(pgtype.Text{}))
	require.Equal(t, Default, l)
}
