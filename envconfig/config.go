// config.go - Haupt-Konfigurationsfunktionen fuer nnscope
//
// Dieses Modul enthaelt:
// - Host: Gibt Scheme und Host zurueck (NNSCOPE_HOST)
// - AllowedOrigins: Gibt erlaubte Origins zurueck (NNSCOPE_ORIGINS)
// - ScanDefault: Gibt Standard-Wert fuer den symbolischen Scan zurueck (NNSCOPE_SCAN)
// - MaxNodes: Gibt maximale Knotenzahl im Interventions-Graph zurueck (NNSCOPE_MAX_NODES)
// - LogLevel: Gibt Log-Level zurueck (NNSCOPE_DEBUG)
//
// Weitere Konfigurationen sind ausgelagert:
// - config_utils.go: Utility-Funktionen und AsMap/Values
package envconfig

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// Host gibt Scheme und Host zurueck
// Konfigurierbar via NNSCOPE_HOST
// Default: http://127.0.0.1:11535
func Host() *url.URL {
	defaultPort := "11535"

	s := strings.TrimSpace(Var("NNSCOPE_HOST"))
	scheme, hostport, ok := strings.Cut(s, "://")
	switch {
	case !ok:
		scheme, hostport = "http", s
	case scheme == "http":
		defaultPort = "80"
	case scheme == "https":
		defaultPort = "443"
	}

	hostport, path, _ := strings.Cut(hostport, "/")
	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		host, port = "127.0.0.1", defaultPort
		if ip := net.ParseIP(strings.Trim(hostport, "[]")); ip != nil {
			host = ip.String()
		} else if hostport != "" {
			host = hostport
		}
	}

	if n, err := strconv.ParseInt(port, 10, 32); err != nil || n > 65535 || n < 0 {
		slog.Warn("invalid port, using default", "port", port, "default", defaultPort)
		port = defaultPort
	}

	if host == "" {
		host = "127.0.0.1"
	}

	return &url.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(host, port),
		Path:   path,
	}
}

// AllowedOrigins gibt erlaubte Origins zurueck
// Konfigurierbar via NNSCOPE_ORIGINS (komma-separiert)
// Enthaelt Standard-Origins fuer localhost
func AllowedOrigins() (origins []string) {
	if s := Var("NNSCOPE_ORIGINS"); s != "" {
		origins = strings.Split(s, ",")
	}

	// Standard-Origins fuer localhost
	for _, origin := range []string{"localhost", "127.0.0.1", "0.0.0.0"} {
		origins = append(origins,
			fmt.Sprintf("http://%s", origin),
			fmt.Sprintf("https://%s", origin),
			fmt.Sprintf("http://%s", net.JoinHostPort(origin, "*")),
			fmt.Sprintf("https://%s", net.JoinHostPort(origin, "*")),
		)
	}

	origins = append(origins,
		"app://*",
		"file://*",
		"vscode-webview://*",
		"vscode-file://*",
	)

	return origins
}

// ScanDefault gibt zurueck, ob Invocations per Default symbolisch gescannt werden
// Konfigurierbar via NNSCOPE_SCAN
// Default: true
var ScanDefault = BoolWithDefault("NNSCOPE_SCAN")

// MaxNodes gibt die maximale Anzahl an Interventions-Knoten pro Session zurueck
// Konfigurierbar via NNSCOPE_MAX_NODES
// Default: 4096
var MaxNodes = Uint("NNSCOPE_MAX_NODES", 4096)

// LogLevel gibt das Log-Level zurueck
// Konfigurierbar via NNSCOPE_DEBUG
// Werte: 0/false = INFO (Default), 1/true = DEBUG, 2 = TRACE
func LogLevel() slog.Level {
	level := slog.LevelInfo
	if s := Var("NNSCOPE_DEBUG"); s != "" {
		if b, _ := strconv.ParseBool(s); b {
			level = slog.LevelDebug
		} else if i, _ := strconv.ParseInt(s, 10, 64); i != 0 {
			level = slog.Level(i * -4)
		}
	}

	return level
}

// Var gibt eine Environment-Variable zurueck
// Entfernt fuehrende/trailing Quotes und Leerzeichen
func Var(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'")
}
