//go:build e2e

package e2e

import (
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/k3pilot/k3pilot/internal/provision"
	"github.com/k3pilot/k3pilot/internal/provision/backup"
	"github.com/k3pilot/k3pilot/internal/provision/bootstrap"
	"github.com/k3pilot/k3pilot/internal/provision/certs"
	"github.com/k3pilot/k3pilot/internal/runtime"
)

var _ = Describe("Cluster lifecycle", Ordered, func() {
	var workDir string

	BeforeAll(func() {
		workDir = GinkgoT().TempDir()
	})

	It("bootstraps the whole fleet", func() {
		rep, err := bootstrap.Run(session, bootstrap.Options{
			KubeconfigPath: filepath.Join(workDir, "kubeconfig"),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(rep.Verdict).To(Equal(provision.VerdictComplete))
		Expect(rep.Failures()).To(BeEmpty())
	})

	It("reports every node Ready", func() {
		client := session.Kube(cluster.FirstControlPlane())

		nodes, err := client.Nodes(session)
		Expect(err).NotTo(HaveOccurred())
		Expect(nodes).To(HaveLen(len(cluster.ControlPlanes) + len(cluster.Workers)))
		for _, n := range nodes {
			Expect(n.IsReady()).To(BeTrue(), "node %s is not Ready", n.Name)
		}
	})

	It("serves the API through the proxy endpoint", func() {
		// The supervisor answers /ping unauthenticated, so a pong
		// proves the whole proxy path without credentials.
		out, err := session.Gateway.Execute(session, cluster.FirstControlPlane(),
			"curl -ksf "+cluster.APIEndpoint()+"/ping")
		Expect(err).NotTo(HaveOccurred())
		Expect(strings.TrimSpace(out)).To(Equal("pong"))
	})

	It("runs the same runtime version everywhere", func() {
		fleet := append([]string{}, cluster.ControlPlanes...)
		fleet = append(fleet, cluster.Workers...)

		want := ""
		for _, node := range fleet {
			out, err := session.Gateway.Execute(session, node, runtime.VersionCommand())
			Expect(err).NotTo(HaveOccurred())
			got, err := runtime.ParseVersion(out)
			Expect(err).NotTo(HaveOccurred())
			if want == "" {
				want = got
				continue
			}
			Expect(got).To(Equal(want), "node %s runs %s, fleet runs %s", node, got, want)
		}
	})

	It("pulls a backup bundle from every control plane", func() {
		dir := filepath.Join(workDir, "bundles")
		rep, err := backup.Run(session, backup.Options{OutputDir: dir})
		Expect(err).NotTo(HaveOccurred())
		Expect(rep.Verdict).To(Equal(provision.VerdictComplete))

		entries, err := os.ReadDir(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(len(cluster.ControlPlanes)))
		for _, e := range entries {
			Expect(e.Name()).To(HaveSuffix(".tar.gz"))
		}
	})

	It("reports fresh certificates on a new cluster", func() {
		rep, err := certs.Check(session, certs.CheckOptions{})
		Expect(err).NotTo(HaveOccurred())
		Expect(rep.Failures()).To(BeEmpty())
		Expect(rep.Warnings()).To(BeEmpty())
	})
})
