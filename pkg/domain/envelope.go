package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Module tags which source adapter produced an envelope and therefore which
// extraction rule applies to it. The set is open: envelopes from modules that
// are not known yet can still be stored and are ignored by the extractor.
type Module string

const (
	// ModuleWhois tags registration data looked up for a domain.
	ModuleWhois Module = "whois"
	// ModuleDNS tags DNS records resolved for a domain.
	ModuleDNS Module = "dns"
	// ModuleHTTPMeta tags HTTP response metadata scraped from a domain's website.
	ModuleHTTPMeta Module = "http_meta"
	// ModuleShodanHost tags host information returned by Shodan for an IP.
	ModuleShodanHost Module = "shodan_host"
	// ModuleUsernameCheck tags profile existence checks for a username.
	ModuleUsernameCheck Module = "username_check"
	// ModulePhoneLookup tags number validation data for a phone number.
	ModulePhoneLookup Module = "phone_lookup"
	// ModuleExifMetadata tags metadata extracted from a set of images.
	ModuleExifMetadata Module = "exif_metadata"
	// ModuleError tags an envelope produced when a source could not even be
	// attributed to a module (e.g. it panicked before returning).
	ModuleError Module = "module_error"
)

// Payload is the module-specific body of an envelope. Every known module has
// exactly one payload type; RawPayload carries bodies of unknown modules.
type Payload interface {
	Module() Module
}

// Envelope is the normalized output of one source module invocation. It is
// created once by the collector and never mutated afterwards.
type Envelope struct {
	// Module identifies the source adapter that produced the envelope.
	Module Module
	// Input is the query value the module was invoked with (domain, username, phone or IP).
	Input string
	// Inputs holds the query values for modules working on several inputs at once (images).
	Inputs []string
	// Timestamp is when the module produced the envelope.
	Timestamp time.Time
	// Error describes why the module failed. Failed envelopes carry no payload.
	Error string
	// Payload is the module-specific body. It is nil for failed envelopes.
	Payload Payload
}

// NewEnvelope wraps a payload into an envelope stamped with the current time.
func NewEnvelope(input string, payload Payload) Envelope {
	env := Envelope{
		Input:     input,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
	if payload != nil {
		env.Module = payload.Module()
	}

	return env
}

// FailedEnvelope builds the error-shaped envelope of a module that could not
// produce a payload.
func FailedEnvelope(module Module, input string, err error) Envelope {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}

	return Envelope{
		Module:    module,
		Input:     input,
		Timestamp: time.Now().UTC(),
		Error:     msg,
	}
}

// Failed reports whether the envelope carries an error instead of a payload.
func (e Envelope) Failed() bool {
	return e.Error != "" || e.Payload == nil
}

// envelopeJSON is the wire form of Envelope. The payload is kept raw until the
// module tag is known.
type envelopeJSON struct {
	Module    Module          `json:"module"`
	Input     string          `json:"input,omitempty"`
	Inputs    []string        `json:"inputs,omitempty"`
	Timestamp time.Time       `json:"ts"`
	Error     string          `json:"error,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (e Envelope) MarshalJSON() ([]byte, error) {
	out := envelopeJSON{
		Module:    e.Module,
		Input:     e.Input,
		Inputs:    e.Inputs,
		Timestamp: e.Timestamp,
		Error:     e.Error,
	}
	if e.Payload != nil {
		b, err := json.Marshal(e.Payload)
		if err != nil {
			return nil, fmt.Errorf("could not marshal %s payload: %w", e.Module, err)
		}
		out.Payload = b
	}

	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler. Fields of a known payload that
// do not match their type are dropped one by one; a payload that is not an
// object, or belongs to an unknown module, is kept as RawPayload. A malformed
// body never makes a stored scan unreadable.
func (e *Envelope) UnmarshalJSON(b []byte) error {
	var in envelopeJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return fmt.Errorf("could not unmarshal envelope: %w", err)
	}

	*e = Envelope{
		Module:    in.Module,
		Input:     in.Input,
		Inputs:    in.Inputs,
		Timestamp: in.Timestamp,
		Error:     in.Error,
	}
	if len(in.Payload) == 0 || string(in.Payload) == "null" {
		return nil
	}

	payload := newPayload(in.Module)
	if payload == nil {
		e.Payload = RawPayload{Tag: in.Module, Body: in.Payload}

		return nil
	}
	if err := json.Unmarshal(in.Payload, payload); err != nil {
		payload = decodeFields(in.Module, in.Payload)
		if payload == nil {
			e.Payload = RawPayload{Tag: in.Module, Body: in.Payload}

			return nil
		}
	}
	e.Payload = payload

	return nil
}

// decodeFields decodes a payload object one top-level field at a time and
// leaves fields that do not match their type at the zero value. It returns
// nil when the body is not a JSON object.
func decodeFields(m Module, body json.RawMessage) Payload {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil
	}

	out := newPayload(m)
	for name, value := range fields {
		one, err := json.Marshal(map[string]json.RawMessage{name: value})
		if err != nil {
			continue
		}
		// a failed decode may leave partial values behind, so try on a scratch copy first
		if err := json.Unmarshal(one, newPayload(m)); err != nil {
			continue
		}
		_ = json.Unmarshal(one, out)
	}

	return out
}

// newPayload returns a pointer to the zero payload of a known module, or nil.
func newPayload(m Module) Payload {
	switch m {
	case ModuleWhois:
		return &WhoisPayload{}
	case ModuleDNS:
		return &DNSPayload{}
	case ModuleHTTPMeta:
		return &HTTPMetaPayload{}
	case ModuleShodanHost:
		return &ShodanPayload{}
	case ModuleUsernameCheck:
		return &UsernamePayload{}
	case ModulePhoneLookup:
		return &PhonePayload{}
	case ModuleExifMetadata:
		return &ExifPayload{}
	default:
		return nil
	}
}

// RawPayload keeps the undecoded body of a module this build does not know.
type RawPayload struct {
	Tag  Module
	Body json.RawMessage
}

// Module implements Payload.
func (r RawPayload) Module() Module { return r.Tag }

// MarshalJSON implements json.Marshaler by emitting the body unchanged.
func (r RawPayload) MarshalJSON() ([]byte, error) {
	if len(r.Body) == 0 {
		return []byte("null"), nil
	}

	return r.Body, nil
}
