package domain

import "time"

// Translation directions recorded in history.
const (
	TranslationTextToSign = "text_to_sign"
	TranslationSignToText = "sign_to_text"
)

// TranslationHistory records one translation performed by a user.
type TranslationHistory struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"user_id"`
	TranslationType string    `json:"translation_type"`
	InputContent    string    `json:"input_content"`
	OutputContent   string    `json:"output_content"`
	CreatedAt       time.Time `json:"created_at"`
}

// SignGesture is a catalogue entry for a known sign.
type SignGesture struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	LanguageCode string `json:"-"`
}
