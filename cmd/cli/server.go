package main

import (
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

const (
	serverBinaryName   = "yt-grab-server"
	serverStartTimeout = 10 * time.Second
	serverPollInterval = 200 * time.Millisecond
)

// isServerRunning checks if the server at baseURL answers its health check
func isServerRunning(baseURL string) bool {
	client := &http.Client{Timeout: 1 * time.Second}
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// serverBinaryCandidates lists where yt-grab-server is looked for, in order
func serverBinaryCandidates(execPath, home string) []string {
	var paths []string
	if execPath != "" {
		paths = append(paths, filepath.Join(filepath.Dir(execPath), serverBinaryName))
	}
	paths = append(paths,
		"/usr/local/bin/"+serverBinaryName,
		"/usr/bin/"+serverBinaryName,
	)
	if home != "" {
		paths = append(paths,
			filepath.Join(home, ".yt-grab", "bin", serverBinaryName),
			filepath.Join(home, "go", "bin", serverBinaryName),
			filepath.Join(home, ".local", "bin", serverBinaryName),
		)
	}
	return paths
}

// findServerBinary locates the yt-grab-server binary
func findServerBinary() (string, error) {
	if path, err := exec.LookPath(serverBinaryName); err == nil {
		return path, nil
	}

	execPath, _ := os.Executable()
	home, _ := os.UserHomeDir()
	for _, p := range serverBinaryCandidates(execPath, home) {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("%s binary not found", serverBinaryName)
}

// startServerBackground starts the server as a detached background process
func startServerBackground(configFile string) error {
	serverPath, err := findServerBinary()
	if err != nil {
		return err
	}

	var args []string
	if configFile != "" {
		args = append(args, "-config", configFile)
	}
	cmd := exec.Command(serverPath, args...)

	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	setSysProcAttr(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	go func() {
		cmd.Wait()
	}()

	return nil
}

// waitForServerReady polls the server until it's ready or timeout
func waitForServerReady(baseURL string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		if isServerRunning(baseURL) {
			return nil
		}
		time.Sleep(serverPollInterval)
	}

	return fmt.Errorf("server did not start within %v", timeout)
}

// ensureServerRunning checks if the server is running and starts it if not
func ensureServerRunning(baseURL, configFile string) error {
	if isServerRunning(baseURL) {
		return nil
	}

	fmt.Fprintln(os.Stderr, "Server not running, starting...")

	if err := startServerBackground(configFile); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	if err := waitForServerReady(baseURL, serverStartTimeout); err != nil {
		return err
	}

	fmt.Fprintln(os.Stderr, "Server started successfully")
	return nil
}
