package mcpserver

import (
	"context"
	"testing"

	"github.com/go-rod/rod"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/locatehq/locate/exec"
	"github.com/locatehq/locate/kit"
)

var testMCPImpl = &mcp.Implementation{Name: "locate-test", Version: "0.1.0"}

type stubPages struct{}

func (stubPages) Get(ctx context.Context, pageID, url string) (*rod.Page, error) {
	return nil, nil
}

func mcpSession(t *testing.T) *mcp.ClientSession {
	t.Helper()
	srv := mcp.NewServer(testMCPImpl, nil)
	s := New(&locexec.Pipeline{}, stubPages{})
	s.RegisterMCP(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	client := mcp.NewClient(testMCPImpl, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func TestRegisterMCP_ListsBothTools(t *testing.T) {
	session := mcpSession(t)

	result, err := session.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}

	names := make(map[string]*mcp.Tool, len(result.Tools))
	for _, tool := range result.Tools {
		names[tool.Name] = tool
	}

	if _, ok := names["locate_query"]; !ok {
		t.Fatal("expected locate_query to be registered")
	}
	if _, ok := names["locate_act"]; !ok {
		t.Fatal("expected locate_act to be registered")
	}
}

func TestRegisterMCP_QueryHasInputSchemaAndDescription(t *testing.T) {
	session := mcpSession(t)

	result, err := session.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}

	for _, tool := range result.Tools {
		if tool.Name != "locate_query" {
			continue
		}
		if tool.InputSchema == nil {
			t.Fatal("expected a non-nil input schema")
		}
		if tool.Description == "" {
			t.Fatal("expected a non-empty description")
		}
		return
	}
	t.Fatal("locate_query not found")
}

func TestEnrichRequestContext_SetsPageIDAndFreshRequestID(t *testing.T) {
	enrich := enrichRequestContext("page-42")
	ctx := enrich(context.Background())

	if got := kit.GetPageID(ctx); got != "page-42" {
		t.Fatalf("expected page_id %q, got %q", "page-42", got)
	}
	if kit.GetRequestID(ctx) == "" {
		t.Fatal("expected a non-empty request id")
	}

	other := enrich(context.Background())
	if kit.GetRequestID(ctx) == kit.GetRequestID(other) {
		t.Fatal("expected distinct request ids across calls")
	}
}
