package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/use-agent/clipper/clipper"
	"github.com/use-agent/clipper/config"
	"github.com/use-agent/clipper/models"
)

func main() {
	apiURL := os.Getenv("CLIPPER_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("CLIPPER_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "CLIPPER_API_KEY is required")
		os.Exit(1)
	}

	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	s := server.NewMCPServer(
		"clipper",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	clipTool := mcp.NewTool("clip_article",
		mcp.WithDescription("Clip a news article: submit it to the collection endpoint, then harvest and submit its English and Chinese translations. Returns the run report."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the source article"),
		),
		mcp.WithNumber("max_age_ms",
			mcp.Description("Return a cached report for the same URL if younger than this many milliseconds (default: 0, always clip)"),
		),
	)
	s.AddTool(clipTool, handleClip(apiURL, apiKey))

	targetsTool := mcp.NewTool("derive_translation_urls",
		mcp.WithDescription("List the translation page URLs that would be opened for an article URL, without clipping anything."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the source article"),
		),
	)
	s.AddTool(targetsTool, handleTargets(cfg.Clipper.Templates))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func handleClip(apiURL, apiKey string) server.ToolHandlerFunc {
	// A run polls every translation window for up to its poll timeout.
	client := &http.Client{Timeout: 180 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		body, err := json.Marshal(models.ClipRequest{
			URL:      url,
			MaxAgeMs: request.GetInt("max_age_ms", 0),
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal request: %v", err)), nil
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+"/api/v1/clip", bytes.NewReader(body))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to create request: %v", err)), nil
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("X-API-Key", apiKey)

		resp, err := client.Do(httpReq)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("API request failed: %v", err)), nil
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to read response: %v", err)), nil
		}

		var clipResp models.ClipResponse
		if err := json.Unmarshal(respBody, &clipResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		if !clipResp.Success {
			errMsg := "clip failed"
			if clipResp.Error != nil {
				errMsg = fmt.Sprintf("[%s] %s", clipResp.Error.Code, clipResp.Error.Message)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		return mcp.NewToolResultText(formatReport(clipResp.Report, clipResp.Cached)), nil
	}
}

func handleTargets(templates map[string]string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		var sb strings.Builder
		if clipper.ExtractToken(url) == "" {
			sb.WriteString("No article identifier found; these pages will not have content.\n")
		}
		for _, t := range clipper.DeriveTargets(url, templates) {
			fmt.Fprintf(&sb, "%s: %s\n", t.LanguageTag, t.DerivedURL)
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func formatReport(r *models.ClipReport, cached bool) string {
	if r == nil {
		return "no report returned"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Run %s: %s\n", r.RunID, r.Phase)
	if cached {
		sb.WriteString("(cached report)\n")
	}
	if r.Record != nil {
		fmt.Fprintf(&sb, "Title: %s\nPublished: %s\nTag: %s\n", r.Record.Title, r.Record.PublishedLabel, r.Record.Tag)
	}
	fmt.Fprintf(&sb, "Article id: %s\n\n", r.ArticleID)

	for _, t := range r.Targets {
		fmt.Fprintf(&sb, "- %s: %s", t.Target.LanguageTag, t.Status)
		if t.HarvestBytes > 0 {
			fmt.Fprintf(&sb, " (%d bytes in %dms)", t.HarvestBytes, t.PollMs)
		}
		if t.Detail != "" {
			fmt.Fprintf(&sb, " %s", t.Detail)
		}
		sb.WriteString("\n")
	}
	for _, w := range r.Warnings {
		fmt.Fprintf(&sb, "warning: %s\n", w)
	}
	fmt.Fprintf(&sb, "\n%d of %d translations submitted\n", r.Submitted(), len(r.Targets))
	return sb.String()
}
