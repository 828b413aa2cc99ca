package storage

import (
	"bytes"
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	storagev1 "k8s.io/api/storage/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/ptr"
	sigsyaml "sigs.k8s.io/yaml"
)

const (
	// Namespace is where the provisioner workload lives.
	Namespace = "kube-system"

	// ClassName is the storage class clusters get by default.
	ClassName = "nfs"

	// ProbeClaimName is the throwaway claim used to verify the
	// provisioner end to end.
	ProbeClaimName = "k3pilot-storage-probe"

	provisionerName  = "k3pilot.io/nfs"
	deploymentName   = "nfs-provisioner"
	serviceAccount   = "nfs-provisioner"
	provisionerImage = "registry.k8s.io/sig-storage/nfs-subdir-external-provisioner:v4.0.2"
)

// Render produces the provisioner manifest set parameterized with the
// NFS server address and export path. The documents come out in apply
// order.
func Render(server, exportPath string) ([]byte, error) {
	objects := []interface{}{
		account(),
		clusterRole(),
		clusterRoleBinding(),
		leaderRole(),
		leaderRoleBinding(),
		deployment(server, exportPath),
		storageClass(),
	}
	return marshalDocs(objects)
}

// RenderProbeClaim produces the small claim Verify binds against the
// default class.
func RenderProbeClaim() ([]byte, error) {
	return marshalDocs([]interface{}{probeClaim()})
}

func marshalDocs(objects []interface{}) ([]byte, error) {
	var buf bytes.Buffer
	for i, obj := range objects {
		out, err := sigsyaml.Marshal(obj)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal manifest document: %w", err)
		}
		if i > 0 {
			buf.WriteString("---\n")
		}
		buf.Write(out)
	}
	return buf.Bytes(), nil
}

func account() *corev1.ServiceAccount {
	return &corev1.ServiceAccount{
		TypeMeta:   metav1.TypeMeta{APIVersion: "v1", Kind: "ServiceAccount"},
		ObjectMeta: metav1.ObjectMeta{Name: serviceAccount, Namespace: Namespace},
	}
}

func clusterRole() *rbacv1.ClusterRole {
	return &rbacv1.ClusterRole{
		TypeMeta:   metav1.TypeMeta{APIVersion: "rbac.authorization.k8s.io/v1", Kind: "ClusterRole"},
		ObjectMeta: metav1.ObjectMeta{Name: "nfs-provisioner-runner"},
		Rules: []rbacv1.PolicyRule{
			{
				APIGroups: []string{""},
				Resources: []string{"nodes"},
				Verbs:     []string{"get", "list", "watch"},
			},
			{
				APIGroups: []string{""},
				Resources: []string{"persistentvolumes"},
				Verbs:     []string{"get", "list", "watch", "create", "delete"},
			},
			{
				APIGroups: []string{""},
				Resources: []string{"persistentvolumeclaims"},
				Verbs:     []string{"get", "list", "watch", "update"},
			},
			{
				APIGroups: []string{"storage.k8s.io"},
				Resources: []string{"storageclasses"},
				Verbs:     []string{"get", "list", "watch"},
			},
			{
				APIGroups: []string{""},
				Resources: []string{"events"},
				Verbs:     []string{"create", "update", "patch"},
			},
		},
	}
}

func clusterRoleBinding() *rbacv1.ClusterRoleBinding {
	return &rbacv1.ClusterRoleBinding{
		TypeMeta:   metav1.TypeMeta{APIVersion: "rbac.authorization.k8s.io/v1", Kind: "ClusterRoleBinding"},
		ObjectMeta: metav1.ObjectMeta{Name: "run-nfs-provisioner"},
		Subjects: []rbacv1.Subject{
			{Kind: "ServiceAccount", Name: serviceAccount, Namespace: Namespace},
		},
		RoleRef: rbacv1.RoleRef{
			APIGroup: "rbac.authorization.k8s.io",
			Kind:     "ClusterRole",
			Name:     "nfs-provisioner-runner",
		},
	}
}

func leaderRole() *rbacv1.Role {
	return &rbacv1.Role{
		TypeMeta:   metav1.TypeMeta{APIVersion: "rbac.authorization.k8s.io/v1", Kind: "Role"},
		ObjectMeta: metav1.ObjectMeta{Name: "leader-locking-nfs-provisioner", Namespace: Namespace},
		Rules: []rbacv1.PolicyRule{
			{
				APIGroups: []string{""},
				Resources: []string{"endpoints"},
				Verbs:     []string{"get", "list", "watch", "create", "update", "patch"},
			},
		},
	}
}

func leaderRoleBinding() *rbacv1.RoleBinding {
	return &rbacv1.RoleBinding{
		TypeMeta:   metav1.TypeMeta{APIVersion: "rbac.authorization.k8s.io/v1", Kind: "RoleBinding"},
		ObjectMeta: metav1.ObjectMeta{Name: "leader-locking-nfs-provisioner", Namespace: Namespace},
		Subjects: []rbacv1.Subject{
			{Kind: "ServiceAccount", Name: serviceAccount, Namespace: Namespace},
		},
		RoleRef: rbacv1.RoleRef{
			APIGroup: "rbac.authorization.k8s.io",
			Kind:     "Role",
			Name:     "leader-locking-nfs-provisioner",
		},
	}
}

func deployment(server, exportPath string) *appsv1.Deployment {
	labels := map[string]string{"app": deploymentName}
	return &appsv1.Deployment{
		TypeMeta:   metav1.TypeMeta{APIVersion: "apps/v1", Kind: "Deployment"},
		ObjectMeta: metav1.ObjectMeta{Name: deploymentName, Namespace: Namespace, Labels: labels},
		Spec: appsv1.DeploymentSpec{
			Replicas: ptr.To(int32(1)),
			Selector: &metav1.LabelSelector{MatchLabels: labels},
			Strategy: appsv1.DeploymentStrategy{Type: appsv1.RecreateDeploymentStrategyType},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: labels},
				Spec: corev1.PodSpec{
					ServiceAccountName: serviceAccount,
					Containers: []corev1.Container{
						{
							Name:  deploymentName,
							Image: provisionerImage,
							VolumeMounts: []corev1.VolumeMount{
								{Name: "nfs-root", MountPath: "/persistentvolumes"},
							},
							Env: []corev1.EnvVar{
								{Name: "PROVISIONER_NAME", Value: provisionerName},
								{Name: "NFS_SERVER", Value: server},
								{Name: "NFS_PATH", Value: exportPath},
							},
						},
					},
					Volumes: []corev1.Volume{
						{
							Name: "nfs-root",
							VolumeSource: corev1.VolumeSource{
								NFS: &corev1.NFSVolumeSource{Server: server, Path: exportPath},
							},
						},
					},
				},
			},
		},
	}
}

func storageClass() *storagev1.StorageClass {
	return &storagev1.StorageClass{
		TypeMeta: metav1.TypeMeta{APIVersion: "storage.k8s.io/v1", Kind: "StorageClass"},
		ObjectMeta: metav1.ObjectMeta{
			Name: ClassName,
			Annotations: map[string]string{
				"storageclass.kubernetes.io/is-default-class": "true",
			},
		},
		Provisioner: provisionerName,
		Parameters:  map[string]string{"archiveOnDelete": "false"},
	}
}

func probeClaim() *corev1.PersistentVolumeClaim {
	return &corev1.PersistentVolumeClaim{
		TypeMeta:   metav1.TypeMeta{APIVersion: "v1", Kind: "PersistentVolumeClaim"},
		ObjectMeta: metav1.ObjectMeta{Name: ProbeClaimName, Namespace: "default"},
		Spec: corev1.PersistentVolumeClaimSpec{
			AccessModes:      []corev1.PersistentVolumeAccessMode{corev1.ReadWriteMany},
			StorageClassName: ptr.To(ClassName),
			Resources: corev1.VolumeResourceRequirements{
				Requests: corev1.ResourceList{
					corev1.ResourceStorage: resource.MustParse("1Mi"),
				},
			},
		},
	}
}
