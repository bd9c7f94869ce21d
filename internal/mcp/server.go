package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"scriptreview/internal/format"
	"scriptreview/internal/logging"
	"scriptreview/internal/pipeline"
	"scriptreview/internal/report"
	"scriptreview/internal/script"
	"scriptreview/internal/store"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

var (
	DefaultListLimit = 20
	// DefaultReviewTimeout bounds a single review_script call.
	DefaultReviewTimeout = 10 * time.Minute
)

// Reviewer runs one review. *pipeline.Orchestrator satisfies it.
type Reviewer interface {
	Run(ctx context.Context, req pipeline.Request) (*report.Report, error)
}

// Server wraps the MCP SDK server and exposes the review tools.
type Server struct {
	MCPServer *sdkmcp.Server

	reviewer Reviewer
	store    store.Store
}

// NewServer creates an MCP server with the review, lookup and listing tools.
// st may be nil, in which case get_review and list_reviews report that no
// store is configured.
func NewServer(reviewer Reviewer, st store.Store, version string) *Server {
	if version == "" {
		version = "dev"
	}
	s := &Server{reviewer: reviewer, store: st}
	s.MCPServer = sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: "scriptreview", Version: version},
		nil,
	)
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "review_script",
		Description: "Review a video script for legal and platform policy risk. Runs every stage and returns the verdict with a Markdown report.",
	}, s.handleReviewScript)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "get_review",
		Description: "Get a stored review by ID, including stage progress and the report once complete.",
	}, s.handleGetReview)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "list_reviews",
		Description: "List recent reviews, newest first.",
	}, s.handleListReviews)
}

// --- Tool input/output types ---

type reviewScriptInput struct {
	Text         string   `json:"text" jsonschema:"full script text"`
	Title        string   `json:"title,omitempty" jsonschema:"script title"`
	Format       string   `json:"format,omitempty" jsonschema:"input format (plain, markdown, srt); detected when empty"`
	ReviewID     string   `json:"review_id,omitempty" jsonschema:"review ID to use instead of a generated one"`
	Subjects     []string `json:"subjects,omitempty" jsonschema:"people or organisations the script is about"`
	Jurisdiction string   `json:"jurisdiction,omitempty" jsonschema:"governing jurisdiction, e.g. US-CA"`
	CaseStatus   string   `json:"case_status,omitempty" jsonschema:"legal status of the underlying case (charged, convicted, acquitted, ...)"`
	Platform     string   `json:"platform,omitempty" jsonschema:"target platform, e.g. youtube"`
	Notes        string   `json:"notes,omitempty" jsonschema:"free-form context for reviewers"`
}

type reviewScriptOutput struct {
	ReviewID      string   `json:"review_id"`
	Verdict       string   `json:"verdict"`
	RiskScore     int      `json:"risk_score"`
	Summary       string   `json:"summary"`
	LegalFindings int      `json:"legal_findings"`
	NeedsCounsel  int      `json:"needs_counsel"`
	Degraded      []string `json:"degraded,omitempty"`
	Fallback      bool     `json:"fallback"`
	Markdown      string   `json:"markdown"`
}

type getReviewInput struct {
	ReviewID string `json:"review_id" jsonschema:"review ID from review_script or list_reviews"`
}

type getReviewOutput struct {
	ReviewID  string            `json:"review_id"`
	Title     string            `json:"title"`
	Status    string            `json:"status"`
	Error     string            `json:"error,omitempty"`
	Stages    map[string]string `json:"stages,omitempty"`
	Verdict   string            `json:"verdict,omitempty"`
	RiskScore int               `json:"risk_score,omitempty"`
	Markdown  string            `json:"markdown,omitempty"`
}

type listReviewsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of reviews (default 20)"`
}

type reviewSummary struct {
	ReviewID  string `json:"review_id"`
	Title     string `json:"title"`
	Status    string `json:"status"`
	Verdict   string `json:"verdict,omitempty"`
	RiskScore int    `json:"risk_score,omitempty"`
	CreatedAt string `json:"created_at"`
}

type listReviewsOutput struct {
	Reviews []reviewSummary `json:"reviews"`
}

// --- Tool handlers ---

func (s *Server) handleReviewScript(ctx context.Context, _ *sdkmcp.CallToolRequest, input reviewScriptInput) (*sdkmcp.CallToolResult, reviewScriptOutput, error) {
	if input.Text == "" {
		return nil, reviewScriptOutput{}, fmt.Errorf("text is required")
	}
	switch script.Format(input.Format) {
	case "", script.FormatPlain, script.FormatMarkdown, script.FormatSRT:
	default:
		return nil, reviewScriptOutput{}, fmt.Errorf("unknown format %q", input.Format)
	}
	ctx, cancel := context.WithTimeout(ctx, DefaultReviewTimeout)
	defer cancel()

	logger := logging.New("mcp")
	rep, err := s.reviewer.Run(ctx, pipeline.Request{
		ReviewID: input.ReviewID,
		Title:    input.Title,
		Text:     input.Text,
		Format:   script.Format(input.Format),
		Meta: pipeline.CaseMetadata{
			Title:        input.Title,
			Subjects:     input.Subjects,
			Jurisdiction: input.Jurisdiction,
			CaseStatus:   input.CaseStatus,
			Platform:     input.Platform,
			Notes:        input.Notes,
		},
	})
	if err != nil {
		logger.Warn("review failed", "review_id", input.ReviewID, "error", err)
		return nil, reviewScriptOutput{}, fmt.Errorf("review_script: %w", err)
	}

	md, err := format.Report(rep, format.Markdown)
	if err != nil {
		return nil, reviewScriptOutput{}, fmt.Errorf("render report: %w", err)
	}
	logger.Info("review complete", "review_id", rep.ReviewID, "verdict", rep.Verdict, "risk_score", rep.RiskScore)

	return nil, reviewScriptOutput{
		ReviewID:      rep.ReviewID,
		Verdict:       string(rep.Verdict),
		RiskScore:     rep.RiskScore,
		Summary:       rep.Summary,
		LegalFindings: len(rep.LegalFindings),
		NeedsCounsel:  rep.ExpertReviewCount(),
		Degraded:      rep.Degraded,
		Fallback:      rep.Fallback,
		Markdown:      md,
	}, nil
}

func (s *Server) handleGetReview(ctx context.Context, _ *sdkmcp.CallToolRequest, input getReviewInput) (*sdkmcp.CallToolResult, getReviewOutput, error) {
	if s.store == nil {
		return nil, getReviewOutput{}, errNoStore
	}
	if input.ReviewID == "" {
		return nil, getReviewOutput{}, fmt.Errorf("review_id is required")
	}
	rec, err := s.store.Get(ctx, input.ReviewID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, getReviewOutput{}, fmt.Errorf("no review with id %q", input.ReviewID)
	}
	if err != nil {
		return nil, getReviewOutput{}, fmt.Errorf("get_review: %w", err)
	}

	out := getReviewOutput{
		ReviewID: rec.ID,
		Title:    rec.Title,
		Status:   string(rec.Status),
		Error:    rec.Error,
		Stages:   rec.Stages,
	}
	if rec.Report != nil {
		out.Verdict = string(rec.Report.Verdict)
		out.RiskScore = rec.Report.RiskScore
		md, err := format.Report(rec.Report, format.Markdown)
		if err != nil {
			return nil, getReviewOutput{}, fmt.Errorf("render report: %w", err)
		}
		out.Markdown = md
	}
	return nil, out, nil
}

func (s *Server) handleListReviews(ctx context.Context, _ *sdkmcp.CallToolRequest, input listReviewsInput) (*sdkmcp.CallToolResult, listReviewsOutput, error) {
	if s.store == nil {
		return nil, listReviewsOutput{}, errNoStore
	}
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	recs, err := s.store.List(ctx, limit)
	if err != nil {
		return nil, listReviewsOutput{}, fmt.Errorf("list_reviews: %w", err)
	}

	out := listReviewsOutput{Reviews: make([]reviewSummary, 0, len(recs))}
	for _, rec := range recs {
		sum := reviewSummary{
			ReviewID:  rec.ID,
			Title:     rec.Title,
			Status:    string(rec.Status),
			CreatedAt: rec.CreatedAt.Format(time.RFC3339),
		}
		if rec.Report != nil {
			sum.Verdict = string(rec.Report.Verdict)
			sum.RiskScore = rec.Report.RiskScore
		}
		out.Reviews = append(out.Reviews, sum)
	}
	return nil, out, nil
}

var errNoStore = errors.New("no review store configured")
