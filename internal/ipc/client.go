package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/1broseidon/infopanel/internal/runtimepath"
)

// Client handles IPC communication with the daemon
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a new IPC client for the default socket.
func NewClient() *Client {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		// Keep constructor non-failing; sendRequest surfaces connection errors.
		socketPath = ""
	}
	return NewClientForSocket(socketPath)
}

// NewClientForSocket creates a client for an explicit socket path.
func NewClientForSocket(socketPath string) *Client {
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

func (c *Client) call(cmd CommandType, payload any, out any) error {
	req := &Request{Command: cmd}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal %s payload: %w", cmd, err)
		}
		req.Payload = data
	}

	resp, err := c.sendRequest(req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("failed to parse %s data: %w", cmd, err)
	}
	return nil
}

// Ping checks if the daemon is responding
func (c *Client) Ping() error {
	return c.call(CommandPing, nil, nil)
}

// Reload asks the daemon to re-read its configuration.
func (c *Client) Reload() error {
	return c.call(CommandReload, nil, nil)
}

// GetStatus retrieves daemon status
func (c *Client) GetStatus() (*StatusData, error) {
	var status StatusData
	if err := c.call(CommandGetStatus, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// GetMonitors retrieves monitor information
func (c *Client) GetMonitors() (*MonitorsData, error) {
	var monitors MonitorsData
	if err := c.call(CommandGetMonitors, nil, &monitors); err != nil {
		return nil, err
	}
	return &monitors, nil
}

// ListProfiles retrieves every configured profile.
func (c *Client) ListProfiles() (*ProfilesData, error) {
	var data ProfilesData
	if err := c.call(CommandListProfiles, nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// ShowProfile opens or activates a profile window.
func (c *Client) ShowProfile(id string) error {
	return c.call(CommandShowProfile, ProfilePayload{ProfileID: id}, nil)
}

// HideProfile hides a profile window without closing it.
func (c *Client) HideProfile(id string) error {
	return c.call(CommandHideProfile, ProfilePayload{ProfileID: id}, nil)
}

// CloseProfile closes a profile window and releases its resources.
func (c *Client) CloseProfile(id string) error {
	return c.call(CommandCloseProfile, ProfilePayload{ProfileID: id}, nil)
}

// Fullscreen sizes a profile window to its monitor.
func (c *Client) Fullscreen(id string) error {
	return c.call(CommandFullscreen, ProfilePayload{ProfileID: id}, nil)
}

// SetFrameRate changes the target frame rate of every window.
func (c *Client) SetFrameRate(fps int, persist bool) error {
	return c.call(CommandSetFrameRate, SetFrameRatePayload{FPS: fps, Persist: persist}, nil)
}

// ResolvePlacement reports where a profile's window would be placed now.
func (c *Client) ResolvePlacement(id string) (*PlacementData, error) {
	var data PlacementData
	if err := c.call(CommandResolvePlacement, ProfilePayload{ProfileID: id}, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// ListItems returns a profile's item tree in z-order.
func (c *Client) ListItems(id string) (*ItemsData, error) {
	var data ItemsData
	if err := c.call(CommandListItems, ProfilePayload{ProfileID: id}, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// ReorderItem moves an item within its sibling list.
func (c *Client) ReorderItem(profileID, itemID, position string) error {
	return c.call(CommandReorderItem, ReorderItemPayload{
		ProfileID: profileID,
		ItemID:    itemID,
		Position:  position,
	}, nil)
}
