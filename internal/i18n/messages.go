package i18n

import (
	"fmt"
	"strings"
)

// Key identifies a localized message.
type Key string

const (
	ChooseLanguage   Key = "choose_language"
	Welcome          Key = "welcome_first"
	LanguageChanged  Key = "lang_changed"
	NeedSubs         Key = "need_subs"
	ButtonSubscribed Key = "btn_subscribed"
	SendURL          Key = "send_url"
	WaitPrevious     Key = "wait_prev"
	Queued           Key = "queued"
	Ready            Key = "ready"
	VideoCaption     Key = "video_caption"
	FetchFailed      Key = "fetch_failed"
	ProcessFailed    Key = "process_failed"
	CommandLanguage  Key = "cmd_lang"
	DailyStats       Key = "daily_stats"
)

var catalog = map[Lang]map[Key]string{
	RU: {
		ChooseLanguage: "🌎 Выберите язык / Choose your language:",
		Welcome: "👋 Добро пожаловать!\n\n" +
			"Этот бот поможет вам скачивать видео с Instagram 📲\n" +
			"Всё очень просто: отправьте ссылку на пост, и я подготовлю для вас видео 🎬\n\n" +
			"Ожидаю твоих ссылок 👇",
		LanguageChanged:  "✅ Язык изменён. Теперь можете продолжать работу!",
		NeedSubs:         "⚠️ Чтобы продолжить работу, подпишитесь на все партнерские каналы:\n\n",
		ButtonSubscribed: "✅ Я подписался",
		SendURL:          "⚠️ Пожалуйста, отправьте ссылку на Instagram.",
		WaitPrevious:     "⏳ Подождите, пока я обработаю ваше предыдущее видео.",
		Queued:           "⏳ Видео поставлено в очередь…",
		Ready:            "✅ Отлично! Теперь можете отправлять ссылку на Instagram.",
		VideoCaption:     "Вот ваше видео 🎬",
		FetchFailed:      "❌ Не удалось получить видео. Возможно ссылка неверна.",
		ProcessFailed:    "❌ Ошибка при загрузке видео.",
		CommandLanguage:  "Сменить язык / Change language",
		DailyStats:       "📊 Статистика за %s:\n👥 Пользователи: %s\n🎬 Видео: %s",
	},
	EN: {
		ChooseLanguage: "🌎 Выберите язык / Choose your language:",
		Welcome: "👋 Welcome!\n\n" +
			"This bot helps you download videos from Instagram 📲\n" +
			"It’s simple: just send me a link to a post, and I’ll fetch the video 🎬\n\n" +
			"I'm waiting for your links 👇",
		LanguageChanged:  "✅ Language changed. You can continue using the bot!",
		NeedSubs:         "⚠️ To continue, you must be subscribed to all partner channels:\n\n",
		ButtonSubscribed: "✅ I subscribed",
		SendURL:          "⚠️ Please send a valid Instagram link.",
		WaitPrevious:     "⏳ Please wait until your previous video is processed.",
		Queued:           "⏳ Your video has been added to the queue…",
		Ready:            "✅ Great! Now you can send an Instagram link.",
		VideoCaption:     "Here is your video 🎬",
		FetchFailed:      "❌ Could not retrieve the video. The link may be invalid.",
		ProcessFailed:    "❌ An error occurred while processing the video.",
		CommandLanguage:  "Сменить язык / Change language",
		DailyStats:       "📊 Daily stats for %s:\n👥 Users: %s\n🎬 Videos: %s",
	},
}

// LanguageNames are the picker labels, always shown in their own language.
var LanguageNames = map[Lang]string{
	RU: "🇷🇺 Русский",
	EN: "🇬🇧 English",
}

// T returns the message for key in lang, falling back to the default
// language and finally to the key itself. Args are applied with fmt.Sprintf.
func T(lang Lang, key Key, args ...any) string {
	msg, ok := catalog[lang.OrDefault()][key]
	if !ok {
		msg, ok = catalog[Default][key]
	}
	if !ok {
		return string(key)
	}
	if len(args) > 0 {
		return fmt.Sprintf(msg, args...)
	}
	return msg
}

// Requirements renders the subscription notice followed by one line per channel.
func Requirements(lang Lang, channels []string) string {
	var b strings.Builder
	b.WriteString(T(lang, NeedSubs))
	for _, ch := range channels {
		ch = strings.TrimSpace(ch)
		if ch == "" {
			continue
		}
		b.WriteString("👉 ")
		b.WriteString(ch)
		b.WriteString("\n")
	}
	return b.String()
}
