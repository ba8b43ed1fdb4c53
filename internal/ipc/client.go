package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/1broseidon/spaces/internal/runtimepath"
)

// Client handles IPC communication with the daemon
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a new IPC client
func NewClient() *Client {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		// Keep constructor non-failing; sendRequest surfaces connection errors.
		socketPath = ""
	}
	return NewClientAt(socketPath)
}

// NewClientAt creates a client for the daemon listening on socketPath.
func NewClientAt(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    5 * time.Second,
	}
}

// sendRequest sends a request and waits for a response
func (c *Client) sendRequest(req *Request) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w (is the daemon running?)", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))

	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	reader := bufio.NewReader(conn)
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.Status == "ERROR" {
		return nil, fmt.Errorf("daemon error: %s", resp.Error)
	}

	return &resp, nil
}

func (c *Client) command(cmd CommandType) error {
	_, err := c.sendRequest(&Request{Command: cmd})
	return err
}

// Reload sends a RELOAD command to the daemon
func (c *Client) Reload() error {
	return c.command(CommandReload)
}

// ToggleFullscreen asks the daemon to toggle a fullscreen space for the
// active window.
func (c *Client) ToggleFullscreen() error {
	return c.command(CommandToggleFullscreen)
}

// ExitAll asks the daemon to exit every fullscreen space.
func (c *Client) ExitAll() error {
	return c.command(CommandExitAll)
}

// Switch asks the daemon for an animated switch; direction is "left" or
// "right".
func (c *Client) Switch(direction string) error {
	payload, err := json.Marshal(SwitchPayload{Direction: direction})
	if err != nil {
		return fmt.Errorf("failed to marshal switch payload: %w", err)
	}
	_, err = c.sendRequest(&Request{
		Command: CommandSwitch,
		Payload: payload,
	})
	return err
}

// GetStatus retrieves daemon status
func (c *Client) GetStatus() (*StatusData, error) {
	var status StatusData
	if err := c.query(CommandGetStatus, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// ListSpaces retrieves the fullscreen spaces the daemon tracks.
func (c *Client) ListSpaces() (*SpacesData, error) {
	var data SpacesData
	if err := c.query(CommandListSpaces, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// DesktopInfo retrieves the desktop list with space ownership.
func (c *Client) DesktopInfo() (*DesktopsData, error) {
	var data DesktopsData
	if err := c.query(CommandDesktopInfo, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

func (c *Client) query(cmd CommandType, out any) error {
	resp, err := c.sendRequest(&Request{Command: cmd})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("failed to parse %s data: %w", cmd, err)
	}
	return nil
}

// Ping checks if the daemon is responding
func (c *Client) Ping() error {
	_, err := c.GetStatus()
	return err
}
