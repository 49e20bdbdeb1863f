package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"gitlab.com/tozd/go/errors"

	"github.com/jward/rtview"
	"github.com/jward/rtview/internal/config"
	"github.com/jward/rtview/internal/logging"
)

// Version is reported to MCP clients.
const Version = "0.1.0"

// Backend is the part of the engine the server needs.
type Backend interface {
	Listing(ctx context.Context, id rtview.ID, opts rtview.Options) (*rtview.Listing, error)
	Query() *rtview.QueryBuilder
}

// Server exposes snapshot browsing and declaration listings as MCP tools.
type Server struct {
	mcp *mcp.Server
	eng Backend
	cfg *config.Config
}

// New creates a new MCP server wired to the given engine.
func New(eng Backend, cfg *config.Config) *Server {
	s := &Server{
		eng: eng,
		cfg: cfg,
		mcp: mcp.NewServer(&mcp.Implementation{
			Name:    "rtview",
			Version: Version,
		}, nil),
	}
	s.registerTools()
	return s
}

// Run serves MCP on the stdio transport until ctx is done or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	logging.Ctx(ctx).Info("starting MCP server on stdio transport")
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_objects",
		Description: "List or search the classes and protocols in the runtime snapshot. Returns JSON with items and total_count.",
	}, s.listObjects)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "show_declaration",
		Description: "Show the Objective-C header declaration of a class or protocol, reconstructed from runtime metadata.",
	}, s.showDeclaration)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "decode_type",
		Description: "Decode an Objective-C runtime type encoding or method type encoding into C syntax.",
	}, s.decodeType)
}

// listObjectsArgs are the arguments for the list_objects tool.
type listObjectsArgs struct {
	Kind    string `json:"kind,omitempty" jsonschema:"classes, protocols or all (default all)"`
	Pattern string `json:"pattern,omitempty" jsonschema:"Name pattern; * matches any run of characters, otherwise substring match"`
	Image   string `json:"image,omitempty" jsonschema:"Restrict to objects defined by this image path"`
	Prefix  string `json:"prefix,omitempty" jsonschema:"Restrict to names starting with this prefix"`
	Offset  int    `json:"offset,omitempty" jsonschema:"Skip this many results"`
	Limit   int    `json:"limit,omitempty" jsonschema:"Maximum results (default 50, max 500)"`
}

type listObjectsResult struct {
	Items      []rtview.ObjectSummary `json:"items"`
	TotalCount int                    `json:"total_count"`
}

func (s *Server) listObjects(ctx context.Context, req *mcp.CallToolRequest, args listObjectsArgs) (*mcp.CallToolResult, any, error) {
	q := s.eng.Query()
	filter := rtview.Filter{Image: args.Image, Prefix: args.Prefix}
	page := rtview.Pagination{Offset: args.Offset, Limit: args.Limit}

	var (
		res *rtview.PagedResult[rtview.ObjectSummary]
		err error
	)
	switch args.Kind {
	case "classes":
		if args.Pattern != "" {
			return errorResult("pattern is only supported with kind all"), nil, nil
		}
		res, err = q.Classes(ctx, filter, page)
	case "protocols":
		if args.Pattern != "" {
			return errorResult("pattern is only supported with kind all"), nil, nil
		}
		res, err = q.Protocols(ctx, filter, page)
	case "", "all":
		res, err = q.Search(ctx, args.Pattern, filter, page)
	default:
		return errorResult(fmt.Sprintf("unknown kind %q: want classes, protocols or all", args.Kind)), nil, nil
	}
	if err != nil {
		return errorResult(fmt.Sprintf("query failed: %v", err)), nil, nil
	}
	return jsonResult(listObjectsResult{Items: res.Items, TotalCount: res.TotalCount})
}

// showDeclarationArgs are the arguments for the show_declaration tool.
// Unset options fall back to the configured defaults.
type showDeclarationArgs struct {
	Name                  string `json:"name" jsonschema:"required,Class name, or protocol as <Name>, protocol:Name or @protocol(Name)"`
	StripSynthesizedIvars *bool  `json:"strip_synthesized_ivars,omitempty" jsonschema:"Omit ivars backing synthesized properties"`
	SortMembers           *bool  `json:"sort_members,omitempty" jsonschema:"Sort members by name within each block"`
	ShowIvarOffsets       *bool  `json:"show_ivar_offsets,omitempty" jsonschema:"Show ivar offsets"`
	ShowTypeEncodings     *bool  `json:"show_method_type_encodings,omitempty" jsonschema:"Show raw method type encodings"`
	ShowCategoryNames     *bool  `json:"show_category_names,omitempty" jsonschema:"Tag members contributed by categories"`
	ShowRecordDefinitions *bool  `json:"show_record_definitions,omitempty" jsonschema:"Emit referenced struct and union definitions"`
}

func (a showDeclarationArgs) options(base rtview.Options) rtview.Options {
	set := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}
	set(&base.StripSynthesizedIvars, a.StripSynthesizedIvars)
	set(&base.SortMembers, a.SortMembers)
	set(&base.ShowIvarOffsets, a.ShowIvarOffsets)
	set(&base.ShowMethodTypeEncodings, a.ShowTypeEncodings)
	set(&base.ShowCategoryNames, a.ShowCategoryNames)
	set(&base.ShowRecordDefinitions, a.ShowRecordDefinitions)
	return base
}

func (s *Server) showDeclaration(ctx context.Context, req *mcp.CallToolRequest, args showDeclarationArgs) (*mcp.CallToolResult, any, error) {
	id, err := rtview.ParseID(args.Name)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}
	l, err := s.eng.Listing(ctx, id, args.options(s.cfg.Options))
	switch {
	case errors.Is(err, rtview.ErrTimeout):
		return errorResult(fmt.Sprintf("%s: lookup timed out", id)), nil, nil
	case errors.Is(err, rtview.ErrNotFound):
		return errorResult(fmt.Sprintf("%s not found", id)), nil, nil
	case err != nil:
		return nil, nil, err
	}
	return textResult(l.String()), nil, nil
}

// decodeTypeArgs are the arguments for the decode_type tool.
type decodeTypeArgs struct {
	Encoding string `json:"encoding" jsonschema:"required,Type encoding such as {CGRect=dd} or method encoding such as v24@0:8@16"`
}

func (s *Server) decodeType(ctx context.Context, req *mcp.CallToolRequest, args decodeTypeArgs) (*mcp.CallToolResult, any, error) {
	d, err := rtview.DescribeType(args.Encoding)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}
	return jsonResult(d)
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, errors.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}
