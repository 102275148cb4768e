// Package admission decides whether a user may submit work, based on
// membership in every configured channel.
package admission

import (
	"context"
	"log/slog"
	"strings"
)

// Membership is the result of a single membership check.
type Membership int

const (
	NotMember Membership = iota
	Member
)

func (m Membership) String() string {
	if m == Member {
		return "member"
	}
	return "not_member"
}

// MembershipChecker asks the chat platform whether userID belongs to requirement.
type MembershipChecker interface {
	CheckMembership(ctx context.Context, userID int64, requirement string) (Membership, error)
}

// Gate is a fail-closed admission check over a fixed list of requirements.
type Gate struct {
	checker      MembershipChecker
	requirements []string
}

func NewGate(checker MembershipChecker, requirements []string) *Gate {
	reqs := make([]string, 0, len(requirements))
	for _, r := range requirements {
		if r = strings.TrimSpace(r); r != "" {
			reqs = append(reqs, r)
		}
	}
	return &Gate{checker: checker, requirements: reqs}
}

// Requirements returns the channels a user must join.
func (g *Gate) Requirements() []string {
	out := make([]string, len(g.requirements))
	copy(out, g.requirements)
	return out
}

// IsAdmitted reports whether userID is a member of every requirement.
// Check errors count as non-membership and are only logged; there is no retry.
func (g *Gate) IsAdmitted(ctx context.Context, userID int64) bool {
	for _, req := range g.requirements {
		m, err := g.checker.CheckMembership(ctx, userID, req)
		if err != nil {
			slog.Warn("membership check failed", "user_id", userID, "requirement", req, "error", err)
			return false
		}
		if m != Member {
			slog.Info("user is not subscribed", "user_id", userID, "requirement", req)
			return false
		}
	}
	return true
}
