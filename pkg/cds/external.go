package cds

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const externalServiceTimeout = 10 * time.Second

// discoveryDocument is the wire shape of an external CDS server's
// GET /cds-services response.
type discoveryDocument struct {
	Services []ServiceDescriptor `json:"services"`
}

// externalHandler proxies invocations to one service on a remote CDS Hooks
// server, discovered from that server's discovery document.
type externalHandler struct {
	descriptor ServiceDescriptor
	baseURL    string
	client     *http.Client
}

// DiscoverExternal fetches {baseURL}/cds-services and wraps every listed
// service as a local HookHandler that proxies invocations back to the
// remote server.
func DiscoverExternal(ctx context.Context, baseURL string) ([]HookHandler, error) {
	baseURL = strings.TrimSuffix(baseURL, "/")

	client := &http.Client{Timeout: externalServiceTimeout}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/cds-services", nil)
	if err != nil {
		return nil, fmt.Errorf("cds: failed to build discovery request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cds: failed to fetch discovery document from %s: %w", baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("cds: discovery request to %s returned status %d: %s", baseURL, resp.StatusCode, body)
	}

	var doc discoveryDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("cds: failed to decode discovery document from %s: %w", baseURL, err)
	}

	handlers := make([]HookHandler, 0, len(doc.Services))
	for _, desc := range doc.Services {
		handlers = append(handlers, &externalHandler{descriptor: desc, baseURL: baseURL, client: client})
	}
	return handlers, nil
}

// Descriptor implements HookHandler.
func (h *externalHandler) Descriptor() ServiceDescriptor {
	return h.descriptor
}

// Invoke implements HookHandler by POSTing req to the remote service.
func (h *externalHandler) Invoke(req Request) (Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("cds: failed to encode request: %w", err)
	}

	url := fmt.Sprintf("%s/cds-services/%s", h.baseURL, h.descriptor.ID)
	ctx, cancel := context.WithTimeout(context.Background(), externalServiceTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("cds: failed to build proxy request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("cds: proxy request to %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return Response{}, fmt.Errorf("cds: proxy request to %s returned status %d: %s", url, resp.StatusCode, respBody)
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Response{}, fmt.Errorf("cds: failed to decode response from %s: %w", url, err)
	}
	return out, nil
}
