// Package parser provides document parsing adapters implementing
// ports.DocumentParser. Binary formats are sent to an external Python
// extraction service.
package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// ServiceParser extracts text from PDF and Word documents by calling the
// extraction service's /parse endpoint.
type ServiceParser struct {
	serviceURL string
	client     *http.Client
	pythonCmd  *exec.Cmd
	logger     *zap.Logger
}

// NewServiceParser creates a parser for the service at serviceURL.
func NewServiceParser(serviceURL string, logger *zap.Logger) *ServiceParser {
	if serviceURL == "" {
		serviceURL = "http://localhost:8081"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ServiceParser{
		serviceURL: serviceURL,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger.Named("parser"),
	}
}

// parseResponse is the extraction service response format.
type parseResponse struct {
	Text    string `json:"text"`
	Pages   int    `json:"pages"`
	Library string `json:"library,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Parse extracts text from document bytes. filename is forwarded so the
// service can pick the format.
func (p *ServiceParser) Parse(ctx context.Context, data []byte, filename string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.serviceURL+"/parse", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-Filename", filepath.Base(filename))

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling parser service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	var result parseResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("decoding response (status %d): %w", resp.StatusCode, err)
	}

	if result.Error != "" {
		return "", fmt.Errorf("parse %s: %s", filename, result.Error)
	}

	p.logger.Debug("parsed document",
		zap.String("file", filename),
		zap.Int("pages", result.Pages),
		zap.String("library", result.Library),
	)
	return result.Text, nil
}

// SupportedFormats returns formats this parser handles.
func (p *ServiceParser) SupportedFormats() []string {
	return []string{"pdf", "docx", "doc"}
}

// StartService launches scriptDir/pdf_service.py as a subprocess and
// returns a function that stops it.
func (p *ServiceParser) StartService(scriptDir string) (func(), error) {
	scriptPath := filepath.Join(scriptDir, "pdf_service.py")
	if _, err := os.Stat(scriptPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("pdf_service.py not found at %s", scriptPath)
	}

	p.pythonCmd = exec.Command("python3", scriptPath)
	p.pythonCmd.Stdout = os.Stdout
	p.pythonCmd.Stderr = os.Stderr

	if err := p.pythonCmd.Start(); err != nil {
		return nil, fmt.Errorf("starting parser service: %w", err)
	}
	p.logger.Info("started parser service", zap.String("script", scriptPath), zap.Int("pid", p.pythonCmd.Process.Pid))

	// Give the service time to bind its port.
	time.Sleep(1 * time.Second)

	cleanup := func() {
		if p.pythonCmd != nil && p.pythonCmd.Process != nil {
			p.pythonCmd.Process.Kill()
		}
	}

	return cleanup, nil
}

// IsServiceHealthy checks if the extraction service is running.
func (p *ServiceParser) IsServiceHealthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.serviceURL+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}
