package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/appforge"
	"github.com/hupe1980/appforge/config"
	"github.com/hupe1980/appforge/core"
	"github.com/hupe1980/appforge/internal/testutil"
	"github.com/hupe1980/appforge/session/sqlite"
	"github.com/hupe1980/appforge/stream/websocket"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	t.Setenv("APPFORGE_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return out.String()
}

func decodeLines(t *testing.T, out string) []core.StreamEvent {
	t.Helper()
	var events []core.StreamEvent
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		var ev core.StreamEvent
		require.NoError(t, json.Unmarshal([]byte(line), &ev), line)
		events = append(events, ev)
	}
	return events
}

func TestRolesCommand(t *testing.T) {
	out := execute(t, "roles")

	assert.Contains(t, out, "ROLE")
	assert.Contains(t, out, "delegate_task,set_phase")
	assert.Contains(t, out, "define_requirement")
	assert.Contains(t, out, "claude-sonnet-4-0")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, len(core.Roles())+1)
	assert.True(t, strings.HasPrefix(lines[1], "coordinator"))
}

func TestChatCommand_JSON(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "appforge.db")
	t.Setenv("APPFORGE_STORE_PATH", dbPath)

	out := execute(t, "chat", "--provider", "scripted", "--json", "--session", "cli-1", "build", "a", "todo", "app")
	events := decodeLines(t, out)

	require.NotEmpty(t, events)
	assert.Equal(t, core.EventAgentStart, events[0].Type)
	assert.Equal(t, core.EventDone, events[len(events)-1].Type)

	outputs := testutil.OfType(events, core.EventStructuredOutput)
	require.Len(t, outputs, 1)
	assert.Equal(t, "Primary workflow", outputs[0].Output.Title)
	assert.Equal(t, core.RoleRequirementsAnalyst, outputs[0].Role)

	phases := testutil.OfType(events, core.EventPhaseChange)
	require.Len(t, phases, 1)
	assert.Equal(t, "design", phases[0].Phase)

	store, err := sqlite.New(dbPath)
	require.NoError(t, err)
	defer store.Close()

	stored, err := store.Events(context.Background(), "cli-1")
	require.NoError(t, err)
	assert.Equal(t, testutil.Types(events), testutil.Types(stored))

	snap, err := store.Snapshot(context.Background(), "cli-1")
	require.NoError(t, err)
	assert.Equal(t, "design", snap.Phase)
	assert.Equal(t, core.StatusCompleted, snap.Statuses[core.RoleCoordinator])

	reqs, err := store.Outputs(context.Background(), "cli-1", core.OutputRequirement)
	require.NoError(t, err)
	assert.Len(t, reqs, 1)
}

func TestChatCommand_Text(t *testing.T) {
	out := execute(t, "chat", "--provider", "scripted", "build a todo app")

	assert.Contains(t, out, "> Coordinator\n")
	assert.Contains(t, out, "  > Requirements Analyst\n")
	assert.Contains(t, out, "  - delegate_task\n")
	assert.Contains(t, out, "    + out_1 requirement: Primary workflow\n")
	assert.Contains(t, out, "  # phase: design\n")
	assert.Contains(t, out, "< Coordinator (completed)\n")
	assert.True(t, strings.HasSuffix(out, "done\n"))
}

func TestChatCommand_RequiresMessage(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"chat", "  "})
	assert.Error(t, cmd.Execute())
}

func TestTextPrinter_ActionError(t *testing.T) {
	var buf bytes.Buffer
	p := newTextPrinter(&buf)
	call := core.ActionCall{ID: "c1", Name: "define_entity"}

	require.NoError(t, p.Send(context.Background(), core.NewTextDeltaEvent(core.RoleDataArchitect, "thinking")))
	require.NoError(t, p.Send(context.Background(), core.NewActionEndEvent(core.RoleDataArchitect,
		core.NewActionErrorResult(call, assert.AnError))))

	assert.Equal(t, "thinking\n! define_entity failed: "+assert.AnError.Error()+"\n", buf.String())
}

func TestServeMux(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	cfg.Provider.Name = config.ProviderScripted

	app, err := appforge.New(cfg)
	require.NoError(t, err)
	defer app.Close()

	srv := httptest.NewServer(newMux(app))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?session=web-1"
	conn, wsResp, err := gorilla.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, "web-1", wsResp.Header.Get(websocket.SessionHeader))

	require.NoError(t, conn.WriteJSON(websocket.ClientMessage{Message: "build a todo app"}))
	for {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var ev core.StreamEvent
		require.NoError(t, conn.ReadJSON(&ev))
		if ev.Type == core.EventDone {
			break
		}
	}

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `appforge_loops_total{reason="completed",role="coordinator"} 1`)
	assert.Contains(t, string(body), `appforge_actions_total{kind="output",role="requirements_analyst",status="ok"} 1`)
}
