// Package models defines vault record types and their fields.
package models

import (
	"encoding/json"
	"errors"
	"strings"
)

// RecordType classifies a record kind. The set is closed: decoding switches
// over it exhaustively and an unknown discriminant is an error, so adding a
// type is a compile-time visible change.
type RecordType string

const (
	RecordTypeLogin RecordType = "login"
	RecordTypeNote  RecordType = "note"
	RecordTypeCard  RecordType = "card"
)

var (
	ErrIncorrectMetadata = errors.New("metadata item must be name=value")
	ErrUnknownRecordType = errors.New("unknown record type")
)

// Metadata is a simple key/value pair attached to a record.
type Metadata struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func MetadataFromStrings(s []string) ([]Metadata, error) {
	data := make([]Metadata, len(s))
	for n, item := range s {
		parts := strings.SplitN(item, "=", 2)
		if len(parts) != 2 {
			return nil, ErrIncorrectMetadata
		}
		data[n] = Metadata{Name: parts[0], Value: parts[1]}
	}
	return data, nil
}

// Envelope is the plaintext form of one record before encryption and after
// decryption: a type discriminant plus type-specific details. It exists
// only in memory; the persistence layer only ever sees its encrypted bytes.
type Envelope struct {
	Type     RecordType      `json:"type"`
	Name     string          `json:"name"`
	Metadata []Metadata      `json:"metadata,omitempty"`
	Details  json.RawMessage `json:"details"`
}

// Wrap builds an Envelope around a typed details value.
func Wrap[T TypedDetails](name string, md []Metadata, v T) (Envelope, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: v.GetType(), Name: name, Metadata: md, Details: b}, nil
}

// Unwrap decodes Details according to the type discriminant. The switch is
// exhaustive over the closed record-type set.
func (e Envelope) Unwrap() (any, error) {
	switch e.Type {
	case RecordTypeLogin:
		var v Login
		return v, json.Unmarshal(e.Details, &v)
	case RecordTypeNote:
		var v Note
		return v, json.Unmarshal(e.Details, &v)
	case RecordTypeCard:
		var v Card
		return v, json.Unmarshal(e.Details, &v)
	default:
		return nil, ErrUnknownRecordType
	}
}

// TypedDetails is implemented by every record details variant.
type TypedDetails interface {
	GetType() RecordType
}

// Login stores website or service credentials.
type Login struct {
	Username string `json:"username"`
	Password string `json:"password"`
	URL      string `json:"url"`
	Notes    string `json:"notes,omitempty"`
}

func (x Login) GetType() RecordType { return RecordTypeLogin }

// Note stores free-form secure text.
type Note struct {
	Text string `json:"text"`
}

func (x Note) GetType() RecordType { return RecordTypeNote }

// Card stores payment card details.
type Card struct {
	Number     string `json:"number"`
	Expiration string `json:"expiration"`
	CVV        string `json:"cvv"`
	Holder     string `json:"holder"`
}

func (x Card) GetType() RecordType { return RecordTypeCard }
