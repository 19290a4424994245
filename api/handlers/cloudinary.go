package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cloudinary/cloudinary-go/v2/api"

	"github.com/lifeline-response/lifeline-api/config"
)

// CloudinaryHandler issues signed upload tickets so phones can push report
// photos straight to Cloudinary without the API secret ever leaving the
// server. The report then carries only the returned public id as photoRef.
type CloudinaryHandler struct {
	Config config.CloudinaryConfig
}

type uploadSignatureRequest struct {
	Folder   string `json:"folder"`
	PublicID string `json:"publicId"`
}

// GenerateSignature generates a signature for Cloudinary uploads
func (c CloudinaryHandler) GenerateSignature(w http.ResponseWriter, r *http.Request) {
	if c.Config.APISecret == "" {
		config.ErrorStatus("photo uploads are not configured", http.StatusServiceUnavailable, w, errors.New("cloudinary credentials missing"))
		return
	}

	var body uploadSignatureRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	params := url.Values{"timestamp": []string{timestamp}}
	if body.Folder != "" {
		params.Set("folder", body.Folder)
	}
	if body.PublicID != "" {
		params.Set("public_id", body.PublicID)
	}

	signature, err := api.SignParameters(params, c.Config.APISecret)
	if err != nil {
		config.ErrorStatus("failed to sign upload parameters", http.StatusInternalServerError, w, err)
		return
	}

	// Respond with everything the client needs for a direct upload
	response := map[string]string{
		"timestamp": timestamp,
		"signature": signature,
		"apiKey":    c.Config.APIKey,
		"cloudName": c.Config.CloudName,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
