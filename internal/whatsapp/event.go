package whatsapp

import (
	"encoding/json"
	"strings"

	"github.com/SandLosT/Attendant/pkg/utils"
)

// Kind classifies an inbound message.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindOther Kind = "other"
)

// Event is a transport-agnostic inbound message.
type Event struct {
	Phone     string
	Kind      Kind
	Text      string
	MessageID string
	// FromMe is true for messages the shop's own number sent.
	FromMe   bool
	MIME     string
	Base64   string
	Filename string
	// Name is the sender's display name when the gateway reports one.
	Name string
}

// PayloadSize is the size of the media payload, used to fingerprint events
// without a message id.
func (e Event) PayloadSize() int { return len(e.Base64) }

// Normalize extracts an Event from a wppconnect webhook body. Fields are
// looked up in the shapes the gateway is known to send (flat, under "data",
// and baileys-style "key").
func Normalize(body map[string]any) Event {
	data := body
	if nested, ok := body["data"].(map[string]any); ok {
		data = nested
	}
	key, _ := data["key"].(map[string]any)

	ev := Event{
		Phone: firstPhone(
			str(data["from"]),
			str(path(data, "sender", "id")),
			str(data["author"]),
			str(data["chatId"]),
			str(key["remoteJid"]),
		),
		MessageID: firstNonEmpty(
			messageID(data["id"]),
			str(data["messageId"]),
			str(body["messageId"]),
			messageID(body["id"]),
			str(key["id"]),
		),
		MIME:     firstNonEmpty(str(data["mimetype"]), str(data["mimeType"])),
		Filename: firstNonEmpty(str(data["filename"]), str(data["fileName"])),
		Name: firstNonEmpty(
			str(data["notifyName"]),
			str(path(data, "sender", "pushname")),
			str(data["pushName"]),
		),
	}

	for _, candidate := range []any{data["fromMe"], key["fromMe"], body["fromMe"]} {
		if b, ok := candidate.(bool); ok {
			ev.FromMe = b
			break
		}
	}

	isMedia, _ := data["isMedia"].(bool)
	isImage := str(data["type"]) == "image" || isMedia || strings.HasPrefix(ev.MIME, "image")
	text := firstNonEmpty(str(data["body"]), str(data["text"]), str(path(data, "message", "conversation")))

	switch {
	case isImage:
		ev.Kind = KindImage
		ev.Base64 = firstNonEmpty(str(data["base64"]), str(data["fileBase64"]))
		if ev.Base64 == "" && looksLikeBase64(text) {
			ev.Base64 = text
		} else {
			ev.Text = firstNonEmpty(str(data["caption"]), text)
		}
	case strings.TrimSpace(text) != "":
		ev.Kind = KindText
		ev.Text = strings.TrimSpace(text)
	default:
		ev.Kind = KindOther
	}
	return ev
}

// ParseBody decodes a raw webhook body.
func ParseBody(raw []byte) (map[string]any, error) {
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, err
	}
	if body == nil {
		body = map[string]any{}
	}
	return body, nil
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func path(m map[string]any, keys ...string) any {
	var cur any = m
	for _, k := range keys {
		mm, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = mm[k]
	}
	return cur
}

// messageID accepts a plain id or wppconnect's {"_serialized": "..."} object.
func messageID(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		return str(t["_serialized"])
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func firstPhone(candidates ...string) string {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		c = strings.ReplaceAll(c, "@c.us", "")
		if digits := utils.DigitsOnly(c); digits != "" {
			return digits
		}
	}
	return ""
}

// looksLikeBase64 tells a media payload in "body" apart from a caption.
func looksLikeBase64(s string) bool {
	if strings.HasPrefix(s, "data:") {
		return true
	}
	if len(s) < 256 || strings.ContainsAny(s, " \n") {
		return false
	}
	return true
}
