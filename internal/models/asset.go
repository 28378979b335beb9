package models

// IPAsset is the metadata submitted to the registration endpoint once a
// dataset has been uploaded. MediaURL is normally the first succeeded upload.
type IPAsset struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	MediaURL    string   `json:"mediaUrl"`
	FileURLs    []string `json:"fileUrls,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	License     string   `json:"license,omitempty"`
}

// RegistrationResponse is the registration endpoint's success payload.
type RegistrationResponse struct {
	IPAssetID string `json:"ipAssetId"`
	TxHash    string `json:"txHash,omitempty"`
}

// RegistrationError is the registration endpoint's error payload.
type RegistrationError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}
