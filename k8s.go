package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"
)

const serviceAccountDir = "/var/run/secrets/kubernetes.io/serviceaccount"

// K8sClient provides the in-cluster Kubernetes API calls needed to follow a
// game server pod's output.
type K8sClient struct {
	namespace string
	apiBase   string
}

func NewK8sClient(namespace string) *K8sClient {
	return &K8sClient{namespace: namespace, apiBase: inClusterAPIBase()}
}

// FindPod returns the name of a running pod matching labelSelector.
func (k *K8sClient) FindPod(ctx context.Context, labelSelector string) (string, error) {
	q := url.Values{}
	q.Set("labelSelector", labelSelector)
	q.Set("fieldSelector", "status.phase=Running")
	q.Set("limit", "1")

	resp, err := k.get(ctx, fmt.Sprintf("/api/v1/namespaces/%s/pods?%s", k.namespace, q.Encode()), false)
	if err != nil {
		return "", fmt.Errorf("list pods: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		Items []struct {
			Metadata struct {
				Name string `json:"name"`
			} `json:"metadata"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode pods: %w", err)
	}
	if len(result.Items) == 0 {
		return "", fmt.Errorf("no running pods with label %s", labelSelector)
	}
	return result.Items[0].Metadata.Name, nil
}

// StreamLogs follows a pod's log. Lines carry RFC3339 timestamps so a
// reconnect can resume from since instead of replaying old output.
func (k *K8sClient) StreamLogs(ctx context.Context, podName string, since time.Time) (io.ReadCloser, error) {
	q := url.Values{}
	q.Set("follow", "true")
	q.Set("timestamps", "true")
	if since.IsZero() {
		q.Set("tailLines", "0")
	} else {
		q.Set("sinceTime", since.UTC().Format(time.RFC3339))
	}

	resp, err := k.get(ctx, fmt.Sprintf("/api/v1/namespaces/%s/pods/%s/log?%s", k.namespace, podName, q.Encode()), true)
	if err != nil {
		return nil, fmt.Errorf("stream logs: %w", err)
	}
	return resp.Body, nil
}

func (k *K8sClient) get(ctx context.Context, path string, stream bool) (*http.Response, error) {
	token, err := os.ReadFile(serviceAccountDir + "/token")
	if err != nil {
		return nil, fmt.Errorf("read sa token: %w", err)
	}
	client := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	if !stream {
		client.Timeout = 30 * time.Second
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.apiBase+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+string(token))

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("%s %s", resp.Status, string(body))
	}
	return resp, nil
}

func inClusterAPIBase() string {
	host := os.Getenv("KUBERNETES_SERVICE_HOST")
	port := os.Getenv("KUBERNETES_SERVICE_PORT")
	if host == "" || port == "" {
		return "https://kubernetes.default.svc"
	}
	return fmt.Sprintf("https://%s:%s", host, port)
}
