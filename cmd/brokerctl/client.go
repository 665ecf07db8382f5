package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// loginFile stores the credentials `auth login` persists, so later
// invocations of brokerctl don't need --api-key-id/--api-secret on
// every call.
type loginFile struct {
	Addr      string `json:"addr"`
	APIKeyID  string `json:"api_key_id"`
	APISecret string `json:"api_secret"`
}

func loginFilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".brokerctl.json"), nil
}

func loadLogin() (loginFile, error) {
	path, err := loginFilePath()
	if err != nil {
		return loginFile{}, err
	}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return loginFile{}, nil
	} else if err != nil {
		return loginFile{}, err
	}
	var lf loginFile
	if err := json.Unmarshal(raw, &lf); err != nil {
		return loginFile{}, fmt.Errorf("corrupt login file %s: %w", path, err)
	}
	return lf, nil
}

func saveLogin(lf loginFile) error {
	path, err := loginFilePath()
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(lf, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0600)
}

// apiClient is a thin wrapper over *http.Client that authenticates
// every request with HTTP Basic (spec §6's primary credential form)
// and maps {message} error bodies into a Go error.
type apiClient struct {
	addr   string
	keyID  string
	secret string
	http   *http.Client
}

// errorBody mirrors internal/apierror.Body's wire shape.
type errorBody struct {
	Message string `json:"message"`
}

func newAPIClient() (*apiClient, error) {
	addr, keyID, secret := globalFlags.addr, globalFlags.apiKeyID, globalFlags.apiSecret
	if addr == "" || keyID == "" {
		lf, err := loadLogin()
		if err != nil {
			return nil, err
		}
		if addr == "" {
			addr = lf.Addr
		}
		if keyID == "" {
			keyID = lf.APIKeyID
		}
		if secret == "" {
			secret = lf.APISecret
		}
	}
	if addr == "" {
		return nil, fatalf("no broker address configured; run `brokerctl auth login` first or pass --addr")
	}
	return &apiClient{addr: addr, keyID: keyID, secret: secret, http: http.DefaultClient}, nil
}

func (c *apiClient) do(method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, c.addr+path, reader)
	if err != nil {
		return err
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.keyID != "" {
		req.SetBasicAuth(c.keyID, c.secret)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		var eb errorBody
		if jsonErr := json.Unmarshal(raw, &eb); jsonErr == nil && eb.Message != "" {
			return fatalf("%s", eb.Message)
		}
		return fatalf("request to %s failed with status %d", path, resp.StatusCode)
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func (c *apiClient) get(path string, out interface{}) error    { return c.do(http.MethodGet, path, nil, out) }
func (c *apiClient) post(path string, body, out interface{}) error {
	return c.do(http.MethodPost, path, body, out)
}
func (c *apiClient) delete(path string) error { return c.do(http.MethodDelete, path, nil, nil) }

func jsonEncoder(w io.Writer) *json.Encoder {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc
}
