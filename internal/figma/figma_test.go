package figma

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fadilmartias/cv-builder/internal/apperror"
	"github.com/fadilmartias/cv-builder/internal/schema"
	"github.com/fadilmartias/cv-builder/internal/service"
)

func sampleResume() *schema.ParsedResume {
	return &schema.ParsedResume{
		Name:    "Jane Doe",
		Title:   "Site Reliability Engineer",
		Summary: "Keeps systems up.",
		Contact: schema.Contact{Email: "jane@example.com"},
		Experience: []schema.Experience{
			{Title: "Engineer", Company: "Acme", Duration: "2020-2024"},
		},
		Skills:         []string{"Go", "Linux"},
		Certifications: []schema.Certification{{Name: "CKA", Issuer: "CNCF", Date: "2023"}},
	}
}

func TestParseLink(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Link
		wantErr bool
	}{
		{"file with node", "https://www.figma.com/file/ABC123/My-Resume?node-id=1-2", Link{FileKey: "ABC123", NodeID: "1-2"}, false},
		{"design without node", "https://figma.com/design/XYZ/Resume", Link{FileKey: "XYZ"}, false},
		{"other host", "https://example.com/file/ABC123/x", Link{}, true},
		{"missing segment", "https://www.figma.com/proto/ABC123/x", Link{}, true},
		{"missing key", "https://www.figma.com/file/", Link{}, true},
		{"empty", "", Link{}, true},
		{"not a url", "figma.com/file/ABC", Link{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLink(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, apperror.CodeInvalidFigmaLink, apperror.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLink_APINodeID(t *testing.T) {
	assert.Equal(t, "1:2", Link{NodeID: "1-2"}.APINodeID())
	assert.Equal(t, "", Link{}.APINodeID())
}

func mappingByID(ms []Mapping) map[string]Mapping {
	out := map[string]Mapping{}
	for _, m := range ms {
		out[m.NodeID] = m
	}
	return out
}

func TestMapContent_Rules(t *testing.T) {
	ms, err := MapContent([]*Node{mockDocument()}, sampleResume(), MappingOptions{})
	require.NoError(t, err)
	byID := mappingByID(ms)

	assert.Equal(t, FieldName, byID["1:4"].Field)
	assert.Equal(t, "Jane Doe", byID["1:4"].Text)
	assert.Equal(t, "rule", byID["1:4"].Source)
	assert.Equal(t, FieldTitle, byID["1:5"].Field)
	assert.Equal(t, FieldEmail, byID["1:6"].Field)
	assert.Equal(t, FieldSummary, byID["1:10"].Field)
	assert.Equal(t, FieldExperience, byID["1:11"].Field)
	assert.Equal(t, "Engineer at Acme · 2020-2024", byID["1:11"].Text)
	assert.Equal(t, FieldSkills, byID["1:13"].Field)
	assert.Equal(t, "Go, Linux", byID["1:13"].Text)

	assert.Equal(t, FieldLiteral, byID["1:9"].Field)
	assert.Equal(t, "About", byID["1:9"].Text)
	assert.Equal(t, "literal", byID["1:14"].Source)
	assert.Equal(t, "Made with Figma", byID["1:14"].Text)

	// empty resume value keeps the placeholder
	assert.Equal(t, FieldPhone, byID["1:7"].Field)
	assert.Equal(t, "+1 000 000 0000", byID["1:7"].Text)
}

func TestMapContent_CustomAndPreserve(t *testing.T) {
	ms, err := MapContent([]*Node{mockDocument()}, sampleResume(), MappingOptions{
		CustomMappings:   map[string]string{"Footer Note": "certifications", "1:9": "title"},
		PreserveElements: []string{"1:4"},
	})
	require.NoError(t, err)
	byID := mappingByID(ms)

	assert.Equal(t, "preserved", byID["1:4"].Source)
	assert.Equal(t, "Your Name", byID["1:4"].Text)
	assert.Equal(t, FieldCertifications, byID["1:14"].Field)
	assert.Equal(t, "custom", byID["1:14"].Source)
	assert.Equal(t, "CKA · CNCF · 2023", byID["1:14"].Text)
	assert.Equal(t, FieldTitle, byID["1:9"].Field)
}

func TestMapContent_UnknownCustomField(t *testing.T) {
	_, err := MapContent([]*Node{mockDocument()}, sampleResume(), MappingOptions{
		CustomMappings: map[string]string{"1:4": "favourite_color"},
	})
	require.Error(t, err)
	assert.Equal(t, apperror.CodeInvalidInput, apperror.CodeOf(err))
}

func TestParseField(t *testing.T) {
	f, ok := ParseField("Email")
	assert.True(t, ok)
	assert.Equal(t, FieldEmail, f)

	f, ok = ParseField("skills")
	assert.True(t, ok)
	assert.Equal(t, FieldSkills, f)

	_, ok = ParseField("hobbies")
	assert.False(t, ok)
}

func TestExtractStyles(t *testing.T) {
	st, warnings := ExtractStyles([]*Node{mockDocument()}, nil)
	assert.Empty(t, warnings)

	assert.Equal(t, "#ffffff", st.Colors[schema.ColorBackground])
	assert.Equal(t, "#2663eb", st.Colors[schema.ColorAccent])
	assert.Equal(t, "#2663eb", st.Colors[schema.ColorPrimary])
	assert.Equal(t, "#121726", st.Colors[schema.ColorText])
	assert.Equal(t, "#4a5463", st.Colors[schema.ColorSecondary])
	assert.Equal(t, "#121726", st.Colors[schema.ColorHeading])
	assert.Equal(t, []string{"Inter"}, st.Fonts)
	assert.Equal(t, float64(32), st.Nodes["1:4"].FontSize)
}

func TestExtractStyles_ColorScheme(t *testing.T) {
	st, warnings := ExtractStyles([]*Node{mockDocument()}, map[string]string{
		"primary":        "#ff0000",
		"--accent-color": "teal",
		"bogus":          "#000000",
		"text":           "url(x)",
	})
	assert.Equal(t, "#ff0000", st.Colors[schema.ColorPrimary])
	assert.Equal(t, "teal", st.Colors[schema.ColorAccent])
	assert.Equal(t, []string{
		"colorScheme: invalid value for text",
		"colorScheme: unknown color bogus",
	}, warnings)
}

func TestComponentName(t *testing.T) {
	assert.Equal(t, "ResumeTemplateResume", ComponentName("", "Resume Template"))
	assert.Equal(t, "MyCv", ComponentName("my cv", "ignored"))
	assert.Equal(t, "Figma2024Resume", ComponentName("", "2024"))
}

func newTestAgent() *Agent {
	return NewAgent(NewMockSource(), nil)
}

func TestAgent_Success(t *testing.T) {
	res, err := newTestAgent().Run(context.Background(), Request{
		Link:   "https://www.figma.com/file/KEY/Resume-Template?node-id=1-2",
		Resume: sampleResume(),
	})
	require.NoError(t, err)
	require.NotNil(t, res.Component)

	assert.Equal(t, StateSuccess, res.State)
	assert.Equal(t, "mock", res.Source)
	assert.Equal(t, "KEY", res.FileKey)
	assert.Equal(t, "Resume Template", res.FileName)
	assert.Empty(t, res.Errors)

	var states []State
	for _, tr := range res.Transitions {
		states = append(states, tr.To)
	}
	assert.Equal(t, []State{
		StateFetchingFileInfo, StateFetchingNodes, StateMappingContent,
		StateExtractingStyles, StateGeneratingComponent, StateSuccess,
	}, states)
	assert.Equal(t, StateIdle, res.Transitions[0].From)

	jsx := res.Component.JSX
	assert.Equal(t, "ResumeTemplateResume", res.Component.Name)
	assert.Contains(t, jsx, "export default function ResumeTemplateResume()")
	assert.Contains(t, jsx, `data-field="name">{"Jane Doe"}</h1>`)
	assert.Contains(t, jsx, `{"Made with Figma"}`)
	assert.Contains(t, jsx, `className="header-1-3"`)
	assert.Contains(t, res.Component.CSS, "--primary-color: #2663eb;")
	assert.Contains(t, res.Component.CSS, ".full-name-1-4 {")

	assert.Contains(t, res.Warnings, "no design element for certifications")
}

func TestAgent_WholeFileWithoutNode(t *testing.T) {
	res, err := newTestAgent().Run(context.Background(), Request{
		Link:   "https://figma.com/design/KEY/Resume",
		Resume: sampleResume(),
	})
	require.NoError(t, err)
	assert.Equal(t, StateSuccess, res.State)
	assert.Contains(t, res.Component.JSX, `className="resume-1-2"`)
}

func TestAgent_Strategies(t *testing.T) {
	link := "https://www.figma.com/file/KEY/Resume?node-id=1-2"

	res, err := newTestAgent().Run(context.Background(), Request{Link: link, Resume: sampleResume(), Strategy: StrategyContentFirst})
	require.NoError(t, err)
	assert.NotContains(t, res.Component.JSX, "Made with Figma")
	assert.Contains(t, res.Component.JSX, `data-field="certifications"`)
	assert.NotContains(t, res.Warnings, "no design element for certifications")

	res, err = newTestAgent().Run(context.Background(), Request{Link: link, Resume: sampleResume(), Strategy: StrategyHybrid})
	require.NoError(t, err)
	assert.Contains(t, res.Component.JSX, "Made with Figma")
	assert.Contains(t, res.Component.JSX, `className="figma-extra"`)
	assert.Contains(t, res.Component.JSX, `data-field="certifications"`)
}

func TestAgent_InvalidLink(t *testing.T) {
	res, err := newTestAgent().Run(context.Background(), Request{Link: "https://example.com/file/KEY"})
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, apperror.CodeInvalidFigmaLink, apperror.CodeOf(err))
	assert.Equal(t, StateFailed, res.State)
	assert.Len(t, res.Errors, 1)
	require.Len(t, res.Transitions, 1)
	assert.Equal(t, StateIdle, res.Transitions[0].From)
}

func TestAgent_MissingNode(t *testing.T) {
	res, err := newTestAgent().Run(context.Background(), Request{
		Link:   "https://www.figma.com/file/KEY/Resume?node-id=9-9",
		Resume: sampleResume(),
	})
	require.Error(t, err)
	assert.Equal(t, apperror.CodeAdaptationFailed, apperror.CodeOf(err))
	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, StateFetchingNodes, res.Transitions[len(res.Transitions)-1].From)
}

func TestAgent_SavesFiles(t *testing.T) {
	dir := t.TempDir()
	agent := NewAgent(NewMockSource(), &FileWriter{Dir: dir})

	res, err := agent.Run(context.Background(), Request{
		Link:          "https://www.figma.com/file/KEY/Resume?node-id=1-2",
		Resume:        sampleResume(),
		ComponentName: "JaneResume",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "JaneResume.jsx"), filepath.Join(dir, "JaneResume.css")}, res.SavedFiles)

	body, err := os.ReadFile(filepath.Join(dir, "JaneResume.jsx"))
	require.NoError(t, err)
	assert.Equal(t, res.Component.JSX, string(body))
}

func TestAgent_SaveFailureIsWarning(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	agent := NewAgent(NewMockSource(), &FileWriter{Dir: blocker})

	res, err := agent.Run(context.Background(), Request{
		Link:   "https://www.figma.com/file/KEY/Resume?node-id=1-2",
		Resume: sampleResume(),
	})
	require.NoError(t, err)
	assert.Equal(t, StateSuccess, res.State)
	assert.Empty(t, res.SavedFiles)

	found := false
	for _, w := range res.Warnings {
		if strings.HasPrefix(w, "generated files were not saved") {
			found = true
		}
	}
	assert.True(t, found)
}

const fileJSON = `{
  "name": "Remote Resume",
  "lastModified": "2024-05-01T00:00:00Z",
  "version": "42",
  "document": {"id": "0:0", "name": "Document", "type": "DOCUMENT", "children": [
    {"id": "0:1", "name": "Page", "type": "CANVAS", "children": [
      {"id": "1:2", "name": "Resume", "type": "FRAME",
       "fills": [{"type": "SOLID", "color": {"r": 1, "g": 1, "b": 1, "a": 1}}],
       "children": [
         {"id": "1:3", "name": "Name", "type": "TEXT", "characters": "Your Name",
          "fills": [{"type": "SOLID", "visible": false, "color": {"r": 1, "g": 0, "b": 0, "a": 1}}],
          "style": {"fontFamily": "Roboto", "fontSize": 24, "fontWeight": 700}}
       ]}
    ]}
  ]}
}`

func newFigmaClient(url string) (*Client, *resty.Client) {
	rc := resty.New()
	c := NewClientWith(rc, url, "secret", 2*time.Second)
	rc.SetRetryWaitTime(time.Millisecond).SetRetryMaxWaitTime(5 * time.Millisecond)
	return c, rc
}

func TestClient_GetFileAndNodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-Figma-Token"))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/files/KEY":
			_, _ = w.Write([]byte(fileJSON))
		case "/files/KEY/nodes":
			assert.Equal(t, "1:2", r.URL.Query().Get("ids"))
			_, _ = w.Write([]byte(`{"nodes": {"1:2": {"document": {"id": "1:2", "name": "Resume", "type": "FRAME"}}}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c, _ := newFigmaClient(srv.URL)

	file, err := c.GetFile(context.Background(), "KEY")
	require.NoError(t, err)
	assert.Equal(t, "Remote Resume", file.Name)
	assert.Equal(t, "42", file.Version)
	frames := firstPageFrames(file.Document)
	require.Len(t, frames, 1)
	nameNode := frames[0].Children[0]
	assert.Equal(t, "Your Name", nameNode.Characters)
	assert.False(t, nameNode.Fills[0].Visible)
	assert.Equal(t, "Roboto", nameNode.Style.FontFamily)
	assert.True(t, frames[0].Fills[0].Visible)

	nodes, err := c.GetNodes(context.Background(), "KEY", []string{"1:2"})
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "FRAME", nodes[0].Type)
}

func TestClient_HTTPErrorNotRetried(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"status": 403, "err": "Invalid token"}`))
	}))
	defer srv.Close()

	c, _ := newFigmaClient(srv.URL)
	_, err := c.GetFile(context.Background(), "KEY")
	require.Error(t, err)

	var pe *service.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.True(t, pe.AccessDenied())
	assert.Equal(t, "Invalid token", pe.Message)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	assert.Equal(t, apperror.CodeExternalAccessDenied, apperror.CodeOf(sourceError(err, "fetch file")))
}

func TestClient_NetworkErrorRetried(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		hj, ok := w.(http.Hijacker)
		require.True(t, ok)
		conn, _, err := hj.Hijack()
		require.NoError(t, err)
		_ = conn.Close()
	}))
	defer srv.Close()

	c, _ := newFigmaClient(srv.URL)
	_, err := c.GetFile(context.Background(), "KEY")
	require.Error(t, err)
	assert.Greater(t, atomic.LoadInt32(&hits), int32(1))
	assert.Equal(t, apperror.CodeExternalService, apperror.CodeOf(sourceError(err, "fetch file")))
}
