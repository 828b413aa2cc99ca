package proxy

import (
	"errors"
	"strings"
	"testing"
	"time"

	testutil "github.com/k3pilot/k3pilot/internal/testing"
)

const proxyNode = "proxy-0"

func newTestEditor(gw *testutil.FakeGateway) *Editor {
	e := NewEditor(gw, proxyNode)
	e.now = func() time.Time { return time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC) }
	return e
}

func serveLive(t *testing.T, gw *testutil.FakeGateway, addrs ...string) {
	t.Helper()
	live, err := Render(members(addrs...))
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	gw.Handle("sudo cat "+ConfPath, live, nil)
}

func commandIndex(cmds []string, substr string) int {
	for i, c := range cmds {
		if strings.Contains(c, substr) {
			return i
		}
	}
	return -1
}

func TestAddServer_ValidatesBeforeReplacing(t *testing.T) {
	t.Parallel()

	gw := testutil.NewFakeGateway()
	serveLive(t, gw, "10.0.0.11")
	e := newTestEditor(gw)

	if err := e.AddServer(testutil.TestContext(t), UpstreamMember("10.0.0.12")); err != nil {
		t.Fatalf("AddServer() error = %v\n%s", err, gw)
	}

	cmds := gw.NodeCommands(proxyNode)
	validate := commandIndex(cmds, "nginx -t -c "+candidatePath)
	backup := commandIndex(cmds, "sudo cp "+ConfPath+" ")
	swap := commandIndex(cmds, "sudo mv "+candidatePath+" "+ConfPath)
	reload := commandIndex(cmds, "systemctl reload nginx")
	for name, idx := range map[string]int{"validate": validate, "backup": backup, "swap": swap, "reload": reload} {
		if idx == -1 {
			t.Fatalf("%s step never ran:\n%s", name, gw)
		}
	}
	if !(validate < backup && backup < swap && swap < reload) {
		t.Errorf("transaction out of order (validate=%d backup=%d swap=%d reload=%d):\n%s",
			validate, backup, swap, reload, gw)
	}

	paths := gw.UploadsTo(proxyNode)
	if len(paths) != 1 {
		t.Fatalf("staged uploads = %v, want one", paths)
	}
	staged, _ := gw.Uploaded(proxyNode, paths[0])
	got, err := ParseServers(string(staged))
	if err != nil {
		t.Fatalf("staged config unparsable: %v", err)
	}
	want := members("10.0.0.11", "10.0.0.12")
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("staged members = %v, want %v", got, want)
	}
}

func TestAddServer_ExistingMemberIsNoOp(t *testing.T) {
	t.Parallel()

	gw := testutil.NewFakeGateway()
	serveLive(t, gw, "10.0.0.11", "10.0.0.12")
	e := newTestEditor(gw)

	if err := e.AddServer(testutil.TestContext(t), UpstreamMember("10.0.0.12")); err != nil {
		t.Fatalf("AddServer() error = %v", err)
	}
	if calls := gw.Calls(); len(calls) != 1 {
		t.Errorf("expected only the read, got:\n%s", gw)
	}
	if len(gw.CommandsMatching("systemctl reload")) != 0 {
		t.Error("no-op join must not reload nginx")
	}
}

func TestAddServer_InvalidCandidateLeavesLiveUntouched(t *testing.T) {
	t.Parallel()

	gw := testutil.NewFakeGateway()
	serveLive(t, gw, "10.0.0.11")
	gw.Handle("nginx -t -c", `nginx: [emerg] unknown directive "serve"`, errors.New("exit status 1"))
	e := newTestEditor(gw)

	err := e.AddServer(testutil.TestContext(t), UpstreamMember("10.0.0.12"))
	if err == nil {
		t.Fatal("AddServer() should fail when the candidate does not validate")
	}
	if !strings.Contains(err.Error(), "live config untouched") {
		t.Errorf("error = %v, want validation failure", err)
	}

	if got := gw.CommandsMatching("sudo cp " + ConfPath + " "); len(got) != 0 {
		t.Errorf("backup taken for a rejected candidate: %v", got)
	}
	if got := gw.CommandsMatching("sudo mv"); len(got) != 0 {
		t.Errorf("live config replaced despite failed validation: %v", got)
	}
	if got := gw.CommandsMatching("systemctl reload"); len(got) != 0 {
		t.Errorf("reload ran despite failed validation: %v", got)
	}
	if got := gw.CommandsMatching("sudo rm -f " + candidatePath); len(got) != 1 {
		t.Errorf("rejected candidate not cleaned up:\n%s", gw)
	}
}

func TestAddServer_ReloadFailureRestoresBackup(t *testing.T) {
	t.Parallel()

	gw := testutil.NewFakeGateway()
	serveLive(t, gw, "10.0.0.11")
	reloads := 0
	gw.HandleFunc("systemctl reload nginx", func(testutil.Call) testutil.Response {
		reloads++
		if reloads == 1 {
			return testutil.Response{Output: "nginx.service failed", Err: errors.New("exit status 1")}
		}
		return testutil.Response{}
	})
	e := newTestEditor(gw)

	err := e.AddServer(testutil.TestContext(t), UpstreamMember("10.0.0.12"))
	if err == nil {
		t.Fatal("AddServer() should surface the reload failure")
	}
	if !strings.Contains(err.Error(), "previous config restored") {
		t.Errorf("error = %v", err)
	}

	restore := "sudo cp " + ConfPath + ".bak-20260101-120000 " + ConfPath
	if got := gw.CommandsMatching(restore); len(got) != 1 {
		t.Errorf("backup was not restored:\n%s", gw)
	}
	if reloads != 2 {
		t.Errorf("reload attempts = %d, want 2 (failed swap, then restore)", reloads)
	}
}

func TestAddServer_SwappedConfigFailingCheckRestoresWithoutReload(t *testing.T) {
	t.Parallel()

	gw := testutil.NewFakeGateway()
	serveLive(t, gw, "10.0.0.11")
	gw.HandleFunc("sudo nginx -t", func(call testutil.Call) testutil.Response {
		if strings.Contains(call.Command, "-c") {
			return testutil.Response{}
		}
		return testutil.Response{Output: "nginx: [emerg] open() failed", Err: errors.New("exit status 1")}
	})
	e := newTestEditor(gw)

	err := e.AddServer(testutil.TestContext(t), UpstreamMember("10.0.0.12"))
	if err == nil {
		t.Fatal("AddServer() should surface the post-swap validation failure")
	}
	if !strings.Contains(err.Error(), "previous config restored") {
		t.Errorf("error = %v", err)
	}

	restore := "sudo cp " + ConfPath + ".bak-20260101-120000 " + ConfPath
	if got := gw.CommandsMatching(restore); len(got) != 1 {
		t.Errorf("backup was not restored:\n%s", gw)
	}
	if got := gw.CommandsMatching("systemctl reload"); len(got) != 0 {
		t.Errorf("reload ran on a config that failed its check: %v", got)
	}
}

func TestAddServer_UnmanagedLiveConfig(t *testing.T) {
	t.Parallel()

	gw := testutil.NewFakeGateway()
	gw.Handle("sudo cat "+ConfPath, "events {}\nhttp {}\n", nil)
	e := newTestEditor(gw)

	if err := e.AddServer(testutil.TestContext(t), UpstreamMember("10.0.0.12")); err == nil {
		t.Fatal("AddServer() should refuse a config without the managed block")
	}
	if got := gw.CommandsMatching("sudo mv"); len(got) != 0 {
		t.Errorf("unmanaged config was replaced: %v", got)
	}
}

func TestInstall_WritesWithoutReload(t *testing.T) {
	t.Parallel()

	gw := testutil.NewFakeGateway()
	e := newTestEditor(gw)

	if err := e.Install(testutil.TestContext(t), members("10.0.0.11", "10.0.0.12", "10.0.0.13")); err != nil {
		t.Fatalf("Install() error = %v\n%s", err, gw)
	}

	if got := gw.CommandsMatching("sudo mv " + candidatePath); len(got) != 1 {
		t.Errorf("candidate was not swapped in:\n%s", gw)
	}
	if got := gw.CommandsMatching("systemctl reload"); len(got) != 0 {
		t.Errorf("bootstrap install must not reload, the caller restarts the service: %v", got)
	}
	if got := gw.CommandsMatching("nginx -t -c"); len(got) != 1 {
		t.Error("install skipped candidate validation")
	}
}

func TestServers_ReadsLiveMembers(t *testing.T) {
	t.Parallel()

	gw := testutil.NewFakeGateway()
	serveLive(t, gw, "10.0.0.11", "10.0.0.13")
	e := newTestEditor(gw)

	got, err := e.Servers(testutil.TestContext(t))
	if err != nil {
		t.Fatalf("Servers() error = %v", err)
	}
	if len(got) != 2 || got[0] != "10.0.0.11:6443" || got[1] != "10.0.0.13:6443" {
		t.Errorf("Servers() = %v", got)
	}
}
