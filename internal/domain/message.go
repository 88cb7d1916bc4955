package domain

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// MessageKind tags the payload type of a message.
type MessageKind string

const (
	KindText     MessageKind = "text"
	KindPhoto    MessageKind = "photo"
	KindVideo    MessageKind = "video"
	KindLocation MessageKind = "location"
)

// Coordinates is a longitude/latitude pair carried by location messages.
type Coordinates struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// MessageBody is the typed payload of a message before envelope
// encoding. Exactly one of the payload fields is meaningful, selected
// by Kind.
type MessageBody struct {
	Kind     MessageKind
	Text     string      // KindText
	MediaURL string      // KindPhoto, KindVideo: absolute URL of the uploaded asset
	Location Coordinates // KindLocation
}

func TextBody(text string) MessageBody {
	return MessageBody{Kind: KindText, Text: text}
}

func PhotoBody(url string) MessageBody {
	return MessageBody{Kind: KindPhoto, MediaURL: url}
}

func VideoBody(url string) MessageBody {
	return MessageBody{Kind: KindVideo, MediaURL: url}
}

func LocationBody(longitude, latitude float64) MessageBody {
	return MessageBody{Kind: KindLocation, Location: Coordinates{Longitude: longitude, Latitude: latitude}}
}

// EncodeBody flattens a typed body into its kind tag and serialized
// content. Uploading media assets is the caller's responsibility; only
// the resulting URL is serialized here.
func EncodeBody(b MessageBody) (kind string, content string, err error) {
	switch b.Kind {
	case KindText:
		return string(KindText), b.Text, nil
	case KindPhoto, KindVideo:
		if _, err := parseAbsoluteURL(b.MediaURL); err != nil {
			return "", "", MalformedContentError{Kind: b.Kind, Reason: err.Error()}
		}
		return string(b.Kind), b.MediaURL, nil
	case KindLocation:
		content := strconv.FormatFloat(b.Location.Longitude, 'f', -1, 64) +
			"," +
			strconv.FormatFloat(b.Location.Latitude, 'f', -1, 64)
		return string(KindLocation), content, nil
	default:
		return "", "", UnsupportedKindError{Kind: string(b.Kind)}
	}
}

// DecodeBody is the exact inverse of EncodeBody.
func DecodeBody(kind string, content string) (MessageBody, error) {
	switch MessageKind(kind) {
	case KindText:
		return TextBody(content), nil
	case KindPhoto, KindVideo:
		if _, err := parseAbsoluteURL(content); err != nil {
			return MessageBody{}, MalformedContentError{Kind: MessageKind(kind), Reason: err.Error()}
		}
		return MessageBody{Kind: MessageKind(kind), MediaURL: content}, nil
	case KindLocation:
		parts := strings.Split(content, ",")
		if len(parts) != 2 {
			return MessageBody{}, MalformedContentError{Kind: KindLocation, Reason: "expected exactly two components"}
		}
		lon, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return MessageBody{}, MalformedContentError{Kind: KindLocation, Reason: "longitude is not numeric"}
		}
		lat, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return MessageBody{}, MalformedContentError{Kind: KindLocation, Reason: "latitude is not numeric"}
		}
		return LocationBody(lon, lat), nil
	default:
		return MessageBody{}, UnsupportedKindError{Kind: kind}
	}
}

func parseAbsoluteURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("url %q is not absolute", raw)
	}
	return u, nil
}

// MessageRecord is one immutable entry in a conversation's append-only
// message log. Ordering is insertion order within the per-conversation
// list; there is no explicit sequence number.
type MessageRecord struct {
	ID          string   `json:"id"`
	Kind        string   `json:"type"`
	Content     string   `json:"content"`
	Date        string   `json:"date"`
	SenderEmail Identity `json:"sender_email"`
	IsRead      bool     `json:"is_read"`
	SenderName  string   `json:"name"`
}

// NewMessageRecord encodes a typed body into a log entry.
func NewMessageRecord(id string, body MessageBody, sender Identity, senderName string, at time.Time) (MessageRecord, error) {
	kind, content, err := EncodeBody(body)
	if err != nil {
		return MessageRecord{}, err
	}
	return MessageRecord{
		ID:          id,
		Kind:        kind,
		Content:     content,
		Date:        FormatDate(at),
		SenderEmail: sender,
		SenderName:  senderName,
	}, nil
}

// Body decodes the record's envelope back into its typed payload.
func (r MessageRecord) Body() (MessageBody, error) {
	return DecodeBody(r.Kind, r.Content)
}

func (r MessageRecord) SentAt() (time.Time, error) {
	return ParseDate(r.Date)
}

// NewMessageID derives the deterministic message identifier from the
// counterpart address, the sender's normalized identity and the send
// time. The id doubles as the basis for attachment file names, so it
// must stay free of reserved separator characters.
func NewMessageID(counterpartAddress string, sender Identity, at time.Time) string {
	raw := fmt.Sprintf("%s_%s_%s", Normalize(counterpartAddress), sender, FormatDate(at))
	return string(Normalize(raw))
}
