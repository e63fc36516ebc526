package kyc

import (
	"fmt"
	"strings"
)

// DocumentKind enumerates the documents required to complete KYC.
type DocumentKind int

const (
	AadhaarFront DocumentKind = iota
	AadhaarBack
	PAN
	Selfie

	kindCount
)

// Kinds lists every required document in display order.
var Kinds = [kindCount]DocumentKind{AadhaarFront, AadhaarBack, PAN, Selfie}

var kindKeys = [kindCount]string{
	AadhaarFront: "aadhaar_front",
	AadhaarBack:  "aadhaar_back",
	PAN:          "pan",
	Selfie:       "selfie",
}

var kindLabels = [kindCount]string{
	AadhaarFront: "Aadhaar Front",
	AadhaarBack:  "Aadhaar Back",
	PAN:          "PAN Card",
	Selfie:       "Selfie / Face",
}

// Valid reports whether k is one of the required kinds.
func (k DocumentKind) Valid() bool {
	return k >= 0 && k < kindCount
}

// Key returns the wire identifier used as documentType by the remote API.
func (k DocumentKind) Key() string {
	if !k.Valid() {
		return ""
	}
	return kindKeys[k]
}

// Label returns a human readable name.
func (k DocumentKind) Label() string {
	if !k.Valid() {
		return ""
	}
	return kindLabels[k]
}

func (k DocumentKind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("DocumentKind(%d)", int(k))
	}
	return kindKeys[k]
}

// MarshalText encodes the kind as its wire key.
func (k DocumentKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid document kind %d", int(k))
	}
	return []byte(kindKeys[k]), nil
}

// UnmarshalText decodes a wire key.
func (k *DocumentKind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind maps a wire key such as "aadhaar_front" to its DocumentKind.
func ParseKind(key string) (DocumentKind, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	for i, candidate := range kindKeys {
		if candidate == key {
			return DocumentKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown document type %q", key)
}

// File is a document chosen by the user and held until it is uploaded.
type File struct {
	Name        string
	ContentType string
	Content     []byte
}

// Size returns the file length in bytes.
func (f *File) Size() int {
	if f == nil {
		return 0
	}
	return len(f.Content)
}
