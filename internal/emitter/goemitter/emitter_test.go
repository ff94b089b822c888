package goemitter

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/swagger2client/internal/gen"
)

func minimalModel() *gen.ClientModel {
	return &gen.ClientModel{
		Title:      "Sample API",
		ClientName: "SampleAPIClient",
		BaseURL:    "https://api.example.com/v1",
		Groups: []gen.Group{{
			Name: "Users",
			Tag:  "users",
			Methods: []gen.MethodDescriptor{
				{
					Name:       "GetUser",
					HTTPMethod: "GET",
					Path:       "/users/{id}",
					Group:      "users",
					PathParams: []gen.Param{
						{Name: "id", In: gen.LocPath, Required: true, Type: gen.TypeString},
					},
					ResponseShape: gen.ShapeObject,
					Model:         &gen.ModelBinding{TypeName: "User", ImportPath: "example.com/models"},
				},
				{
					Name:       "ListUsers",
					HTTPMethod: "GET",
					Path:       "/users",
					Group:      "users",
					QueryParams: []gen.Param{
						{Name: "limit", In: gen.LocQuery, Type: gen.TypeNumber},
					},
					ResponseShape: gen.ShapeCollection,
					Model:         &gen.ModelBinding{TypeName: "User", ImportPath: "example.com/models"},
				},
			},
		}},
	}
}

func TestEmit_DryRun_Plan(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()

	res, err := Emit(ctx, minimalModel(), Options{
		OutDir: dir,
		DryRun: true,
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if res.PackageName != "sampleapi" {
		t.Fatalf("package name mismatch: %q", res.PackageName)
	}
	want := []string{"README.md", "client.go", "doc.go"}
	if len(res.Planned) != len(want) {
		t.Fatalf("planned count mismatch: %+v", res.Planned)
	}
	for i, p := range want {
		if res.Planned[i].RelPath != p {
			t.Fatalf("planned[%d] = %q, want %q", i, res.Planned[i].RelPath, p)
		}
	}
	// Dry-run should not have written files
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Fatalf("expected no files written on dry-run")
	}
}

func TestEmit_WriteAndContents(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()

	_, err := Emit(ctx, minimalModel(), Options{
		OutDir:      dir,
		PackageName: "My-Sample7",
		Force:       true,
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "client.go"))
	if err != nil {
		t.Fatalf("read client.go: %v", err)
	}
	src := string(data)

	for _, snippet := range []string{
		"package mysample7",
		`const defaultBaseURL = "https://api.example.com/v1"`,
		"func New(cfg client.Config) (*SampleAPIClient, error)",
		"func (c *SampleAPIClient) Users() *UsersClient",
		"func (c *UsersClient) GetUser(ctx context.Context, id string) (models.User, error)",
		"func (c *UsersClient) ListUsers(ctx context.Context, limit float64) ([]models.User, error)",
		`q.Set("limit", strconv.FormatFloat(limit, 'f', -1, 64))`,
		"client.Collection[models.User](resp)",
		`"example.com/models"`,
	} {
		if !strings.Contains(src, snippet) {
			t.Errorf("client.go missing %q:\n%s", snippet, src)
		}
	}

	doc, err := os.ReadFile(filepath.Join(dir, "doc.go"))
	if err != nil {
		t.Fatalf("read doc.go: %v", err)
	}
	if !strings.Contains(string(doc), "package mysample7") {
		t.Errorf("doc.go missing package clause: %s", string(doc))
	}
}

func TestEmit_NoForce_NonEmptyDir(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "existing.txt"), []byte("x"), 0o600); err != nil {
		t.Fatalf("prewrite: %v", err)
	}
	_, err := Emit(ctx, minimalModel(), Options{OutDir: dir})
	if err == nil {
		t.Fatalf("expected error on non-empty dir without force")
	}
	if !strings.Contains(err.Error(), "not empty") {
		t.Fatalf("unexpected error: %v", err)
	}
}
