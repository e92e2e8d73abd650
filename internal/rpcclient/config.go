package rpcclient

import (
	"net/url"
	"os"
	"strings"

	"github.com/cory-btc/ancestry/internal/coreerr"
)

// Config configures a Client. Connection must be an http(s) URL pointing
// at a Bitcoin Core JSON-RPC endpoint. Authentication is resolved in
// order: explicit User/Pass, then CookieFile, then none.
type Config struct {
	Connection string
	User       string
	Pass       string
	CookieFile string

	// RateLimitPerSec bounds outbound RPC calls; zero disables limiting.
	RateLimitPerSec float64
	// BatchChunkSize bounds how many calls batchChunked puts in a
	// single JSON-RPC batch request. Must be positive.
	BatchChunkSize int
}

func resolveAuth(cfg Config) (user, pass string, ok bool, err error) {
	switch {
	case cfg.User != "" && cfg.Pass != "":
		return cfg.User, cfg.Pass, true, nil
	case cfg.User != "" || cfg.Pass != "":
		return "", "", false, &coreerr.InvalidTxDataError{Msg: "both rpc user and rpc pass must be set together"}
	}

	if cfg.CookieFile == "" {
		return "", "", false, nil
	}

	content, readErr := os.ReadFile(cfg.CookieFile)
	if readErr != nil {
		return "", "", false, &coreerr.IOError{Path: cfg.CookieFile, Err: readErr}
	}

	line := firstNonEmptyLine(string(content))
	if line == "" {
		return "", "", false, &coreerr.InvalidTxDataError{Msg: "rpc cookie file " + cfg.CookieFile + " is empty"}
	}

	cookieUser, cookiePass, found := strings.Cut(line, ":")
	if !found {
		return "", "", false, &coreerr.InvalidTxDataError{Msg: "rpc cookie file " + cfg.CookieFile + " must contain `username:password`"}
	}
	if cookieUser == "" || cookiePass == "" {
		return "", "", false, &coreerr.InvalidTxDataError{Msg: "rpc cookie file " + cfg.CookieFile + " must contain non-empty `username:password`"}
	}

	return cookieUser, cookiePass, true, nil
}

func firstNonEmptyLine(content string) string {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func parseConnection(connection string) (string, error) {
	parsed, err := url.Parse(connection)
	if err != nil {
		return "", &coreerr.InvalidTxDataError{Msg: "invalid connection `" + connection + "`: expected HTTP(S) URL: " + err.Error()}
	}
	switch parsed.Scheme {
	case "http", "https":
		return connection, nil
	default:
		return "", &coreerr.InvalidTxDataError{Msg: "unsupported connection scheme `" + parsed.Scheme + "`; expected http or https"}
	}
}
