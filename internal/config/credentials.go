package config

// Credential is a fully resolved SSH identity for one node.
type Credential struct {
	User    string
	KeyFile string
	Port    int
}

// CredentialFor resolves the credential for an address from the descriptor
// alone: the default credential, overlaid by a role-selector override, then
// by an address-selector override. Resolution is deterministic; no probing
// happens at connect time.
func (c *Cluster) CredentialFor(address string) Credential {
	cred := Credential{
		User:    c.SSH.User,
		KeyFile: c.SSH.KeyFile,
		Port:    c.SSH.Port,
	}
	if cred.Port == 0 {
		cred.Port = DefaultSSHPort
	}

	role, known := c.RoleOf(address)
	if known {
		for _, o := range c.SSH.Overrides {
			if o.Match == role.String() {
				cred = cred.overlay(o)
			}
		}
	}
	for _, o := range c.SSH.Overrides {
		if o.Match == address {
			cred = cred.overlay(o)
		}
	}

	return cred
}

// CredentialTable maps every fleet address to its resolved credential.
// Built once per invocation and handed to the gateway.
func (c *Cluster) CredentialTable() map[string]Credential {
	table := make(map[string]Credential, len(c.AllNodes()))
	for _, addr := range c.AllNodes() {
		table[addr] = c.CredentialFor(addr)
	}
	return table
}

// overlay applies the set fields of an override on top of a credential.
func (cred Credential) overlay(o SSHOverride) Credential {
	if o.User != "" {
		cred.User = o.User
	}
	if o.KeyFile != "" {
		cred.KeyFile = o.KeyFile
	}
	if o.Port != 0 {
		cred.Port = o.Port
	}
	return cred
}
