package runtime

import (
	"fmt"
	"strings"
	"time"
)

// CertDir holds the cluster certificates on server nodes.
const CertDir = "/var/lib/rancher/k3s/server/tls"

// CoreCertificates are the certificate files whose expiry the check
// inspects. The leaf certificates are replaced by a rotation; the CA
// certificates are not, and an expiring CA needs operator attention
// beyond a rotate.
var CoreCertificates = []string{
	"serving-kube-apiserver.crt",
	"client-admin.crt",
	"client-controller.crt",
	"client-scheduler.crt",
	"server-ca.crt",
	"client-ca.crt",
}

// CertRotateCommand regenerates the leaf certificates. The k3s service
// must be stopped when this runs.
func CertRotateCommand() string {
	return "sudo k3s certificate rotate"
}

// CertCheckCommand prints the notAfter date of one certificate file.
func CertCheckCommand(file string) string {
	return fmt.Sprintf("sudo openssl x509 -noout -enddate -in %s/%s", CertDir, file)
}

// ParseNotAfter parses openssl -enddate output such as
//
//	notAfter=Mar  1 12:00:00 2027 GMT
func ParseNotAfter(output string) (time.Time, error) {
	s := strings.TrimSpace(output)
	s = strings.TrimPrefix(s, "notAfter=")
	t, err := time.Parse("Jan _2 15:04:05 2006 MST", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse certificate end date %q: %w", s, err)
	}
	return t, nil
}
