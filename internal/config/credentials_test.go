package config

import "testing"

func TestCredentialFor_Default(t *testing.T) {
	t.Parallel()
	c := valid()
	cred := c.CredentialFor("10.0.0.11")
	if cred.User != "ops" || cred.KeyFile != "/home/ops/.ssh/id_ed25519" || cred.Port != DefaultSSHPort {
		t.Errorf("unexpected credential: %+v", cred)
	}
}

func TestCredentialFor_RoleOverride(t *testing.T) {
	t.Parallel()
	c := valid()
	c.SSH.Overrides = []SSHOverride{
		{Match: "proxy", User: "admin"},
		{Match: "worker[0]", KeyFile: "/keys/worker"},
	}

	proxy := c.CredentialFor(c.Proxy)
	if proxy.User != "admin" {
		t.Errorf("proxy user = %q, want admin", proxy.User)
	}
	if proxy.KeyFile != c.SSH.KeyFile {
		t.Errorf("proxy key = %q, want inherited default", proxy.KeyFile)
	}

	worker := c.CredentialFor("10.0.0.21")
	if worker.User != "ops" || worker.KeyFile != "/keys/worker" {
		t.Errorf("worker credential = %+v", worker)
	}
}

func TestCredentialFor_AddressBeatsRole(t *testing.T) {
	t.Parallel()
	c := valid()
	c.SSH.Overrides = []SSHOverride{
		{Match: "control-plane[0]", User: "roleuser", Port: 2200},
		{Match: "10.0.0.11", User: "addruser"},
	}

	cred := c.CredentialFor("10.0.0.11")
	if cred.User != "addruser" {
		t.Errorf("user = %q, want address override to win", cred.User)
	}
	if cred.Port != 2200 {
		t.Errorf("port = %d, want role override field to survive", cred.Port)
	}
}

func TestCredentialTable_CoversFleet(t *testing.T) {
	t.Parallel()
	c := valid()
	table := c.CredentialTable()
	for _, addr := range c.AllNodes() {
		if _, ok := table[addr]; !ok {
			t.Errorf("no credential for %s", addr)
		}
	}
	if len(table) != len(c.AllNodes()) {
		t.Errorf("table has %d entries, want %d", len(table), len(c.AllNodes()))
	}
}
