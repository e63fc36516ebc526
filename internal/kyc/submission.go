package kyc

import "strings"

// Metadata is optional information sent along with the document URLs.
type Metadata struct {
	PANName string `json:"panName,omitempty"`
}

func (m Metadata) normalized() Metadata {
	return Metadata{PANName: strings.TrimSpace(m.PANName)}
}

// Submission is the body of the KYC submit call.
type Submission struct {
	AadhaarFrontURL string   `json:"aadhaarFrontUrl"`
	AadhaarBackURL  string   `json:"aadhaarBackUrl"`
	PANURL          string   `json:"panUrl"`
	SelfieURL       string   `json:"selfieUrl"`
	Metadata        Metadata `json:"metadata"`
}
