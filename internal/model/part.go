// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

// =============================================================================
// PART SUM TYPE
// =============================================================================

// PartType is the wire tag of a message part.
type PartType string

const (
	PartText      PartType = "text"
	PartReasoning PartType = "reasoning"
	PartSourceURL PartType = "source-url"
)

// ErrUnknownPartType is returned when decoding a part with an unrecognized tag.
var ErrUnknownPartType = errors.New("unknown part type")

// Part is one piece of a message. The set of variants is closed:
// TextPart, ReasoningPart and SourceURLPart are the only implementations.
type Part interface {
	Type() PartType
	isPart()
}

// TextPart carries user-visible text. It is the only part sent upstream.
type TextPart struct {
	Text string
}

// ReasoningPart carries model reasoning shown in a collapsible panel.
type ReasoningPart struct {
	Text string
}

// SourceURLPart references a source the response was built from.
type SourceURLPart struct {
	URL   string
	Title string
}

func (TextPart) Type() PartType      { return PartText }
func (ReasoningPart) Type() PartType { return PartReasoning }
func (SourceURLPart) Type() PartType { return PartSourceURL }

func (TextPart) isPart()      {}
func (ReasoningPart) isPart() {}
func (SourceURLPart) isPart() {}

// =============================================================================
// JSON ENCODING
// =============================================================================

// wirePart is the tagged JSON shape shared by all variants.
type wirePart struct {
	Type  PartType `json:"type"`
	Text  string   `json:"text,omitempty"`
	URL   string   `json:"url,omitempty"`
	Title string   `json:"title,omitempty"`
}

// MarshalJSON encodes a text part as {"type":"text","text":...}.
func (p TextPart) MarshalJSON() ([]byte, error) {
	return json.Marshal(wirePart{Type: PartText, Text: p.Text})
}

// MarshalJSON encodes a reasoning part as {"type":"reasoning","text":...}.
func (p ReasoningPart) MarshalJSON() ([]byte, error) {
	return json.Marshal(wirePart{Type: PartReasoning, Text: p.Text})
}

// MarshalJSON encodes a source part as {"type":"source-url","url":...}.
func (p SourceURLPart) MarshalJSON() ([]byte, error) {
	return json.Marshal(wirePart{Type: PartSourceURL, URL: p.URL, Title: p.Title})
}

// DecodePart decodes one tagged part. Unknown tags are an error rather than
// being dropped.
func DecodePart(data []byte) (Part, error) {
	var wp wirePart
	if err := json.Unmarshal(data, &wp); err != nil {
		return nil, err
	}
	switch wp.Type {
	case PartText:
		return TextPart{Text: wp.Text}, nil
	case PartReasoning:
		return ReasoningPart{Text: wp.Text}, nil
	case PartSourceURL:
		return SourceURLPart{URL: wp.URL, Title: wp.Title}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPartType, wp.Type)
	}
}
