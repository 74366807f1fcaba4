// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// =============================================================================
// MODEL OPTIONS
// =============================================================================

// ModelOption is one entry of the model selector.
type ModelOption struct {
	// Name is the human-readable display name
	Name string `toml:"name" json:"name"`

	// Value is the "provider/model-name" identifier sent to the relay
	Value string `toml:"value" json:"value"`
}

// DefaultModelOptions returns the selector entries offered out of the box.
func DefaultModelOptions() []ModelOption {
	return []ModelOption{
		{Name: "GPT 4o", Value: "openai/gpt-4o"},
		{Name: "Deepseek R1", Value: "deepseek/deepseek-r1"},
	}
}

// FindModelOption returns the option whose Value matches value.
func FindModelOption(options []ModelOption, value string) (ModelOption, bool) {
	for _, opt := range options {
		if opt.Value == value {
			return opt, true
		}
	}
	return ModelOption{}, false
}

// NextModelOption returns the option after value, wrapping around.
// An unknown value yields the first option.
func NextModelOption(options []ModelOption, value string) (ModelOption, bool) {
	if len(options) == 0 {
		return ModelOption{}, false
	}
	for i, opt := range options {
		if opt.Value == value {
			return options[(i+1)%len(options)], true
		}
	}
	return options[0], true
}
