package storage

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/util/yaml"
)

func decodeAll(t *testing.T, manifest []byte) []unstructured.Unstructured {
	t.Helper()
	decoder := yaml.NewYAMLOrJSONDecoder(bytes.NewReader(manifest), 4096)
	var docs []unstructured.Unstructured
	for {
		var raw unstructured.Unstructured
		if err := decoder.Decode(&raw); err != nil {
			if err == io.EOF {
				break
			}
			t.Fatalf("failed to decode rendered manifest: %v", err)
		}
		if len(raw.Object) == 0 {
			continue
		}
		docs = append(docs, raw)
	}
	return docs
}

func findKind(docs []unstructured.Unstructured, kind string) (unstructured.Unstructured, bool) {
	for _, d := range docs {
		if d.GetKind() == kind {
			return d, true
		}
	}
	return unstructured.Unstructured{}, false
}

func TestRender_ParameterizesServerAndPath(t *testing.T) {
	t.Parallel()

	manifest, err := Render("10.0.0.11", "/srv/export")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	docs := decodeAll(t, manifest)
	if len(docs) != 7 {
		t.Fatalf("rendered %d documents, want 7", len(docs))
	}

	dep, ok := findKind(docs, "Deployment")
	if !ok {
		t.Fatal("no Deployment in rendered manifest")
	}
	containers, _, err := unstructured.NestedSlice(dep.Object, "spec", "template", "spec", "containers")
	if err != nil || len(containers) != 1 {
		t.Fatalf("containers = %v (err %v)", containers, err)
	}
	envs := containers[0].(map[string]interface{})["env"].([]interface{})
	got := map[string]string{}
	for _, e := range envs {
		em := e.(map[string]interface{})
		got[em["name"].(string)] = em["value"].(string)
	}
	if got["NFS_SERVER"] != "10.0.0.11" || got["NFS_PATH"] != "/srv/export" {
		t.Errorf("provisioner env = %v", got)
	}

	volumes, _, err := unstructured.NestedSlice(dep.Object, "spec", "template", "spec", "volumes")
	if err != nil || len(volumes) != 1 {
		t.Fatalf("volumes = %v (err %v)", volumes, err)
	}
	nfs := volumes[0].(map[string]interface{})["nfs"].(map[string]interface{})
	if nfs["server"] != "10.0.0.11" || nfs["path"] != "/srv/export" {
		t.Errorf("nfs volume = %v", nfs)
	}
}

func TestRender_StorageClassMatchesProvisioner(t *testing.T) {
	t.Parallel()

	manifest, err := Render("10.0.0.11", "/srv/export")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	docs := decodeAll(t, manifest)

	sc, ok := findKind(docs, "StorageClass")
	if !ok {
		t.Fatal("no StorageClass in rendered manifest")
	}
	if sc.GetName() != ClassName {
		t.Errorf("class name = %q", sc.GetName())
	}
	if sc.GetAnnotations()["storageclass.kubernetes.io/is-default-class"] != "true" {
		t.Error("class is not marked default")
	}

	scProvisioner, _, _ := unstructured.NestedString(sc.Object, "provisioner")
	dep, _ := findKind(docs, "Deployment")
	containers, _, _ := unstructured.NestedSlice(dep.Object, "spec", "template", "spec", "containers")
	var envProvisioner string
	for _, e := range containers[0].(map[string]interface{})["env"].([]interface{}) {
		em := e.(map[string]interface{})
		if em["name"] == "PROVISIONER_NAME" {
			envProvisioner = em["value"].(string)
		}
	}
	if scProvisioner == "" || scProvisioner != envProvisioner {
		t.Errorf("class provisioner %q does not match deployment env %q", scProvisioner, envProvisioner)
	}
}

func TestRender_EveryDocumentIsAddressable(t *testing.T) {
	t.Parallel()

	manifest, err := Render("10.0.0.11", "/srv/export")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	for _, d := range decodeAll(t, manifest) {
		if d.GetAPIVersion() == "" || d.GetKind() == "" || d.GetName() == "" {
			t.Errorf("document missing identity: apiVersion=%q kind=%q name=%q",
				d.GetAPIVersion(), d.GetKind(), d.GetName())
		}
	}
}

func TestRenderProbeClaim(t *testing.T) {
	t.Parallel()

	manifest, err := RenderProbeClaim()
	if err != nil {
		t.Fatalf("RenderProbeClaim() error = %v", err)
	}
	docs := decodeAll(t, manifest)
	if len(docs) != 1 {
		t.Fatalf("rendered %d documents, want 1", len(docs))
	}
	claim := docs[0]
	if claim.GetKind() != "PersistentVolumeClaim" || claim.GetName() != ProbeClaimName {
		t.Errorf("claim identity = %s/%s", claim.GetKind(), claim.GetName())
	}
	class, _, _ := unstructured.NestedString(claim.Object, "spec", "storageClassName")
	if class != ClassName {
		t.Errorf("storageClassName = %q", class)
	}
	if !strings.Contains(string(manifest), "1Mi") {
		t.Error("probe claim should request a token amount of storage")
	}
}
