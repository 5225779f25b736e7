package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"riskcore/pkg/common"
	"riskcore/pkg/protocol"
)

type Client struct {
	conn net.Conn
	addr string
}

func Dial(addr string) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return nil, err
	}
	return &Client{
		conn: conn,
		addr: addr,
	}, nil
}

// Predict sends one feature vector and returns the label and vote fraction.
func (c *Client) Predict(features common.FeatureVector) (common.RiskLabel, float64, error) {
	payload := protocol.EncodeVector(features)

	data, err := c.roundTrip(protocol.OpPredict, payload)
	if err != nil {
		return 0, 0, err
	}
	return protocol.DecodePrediction(data)
}

// Train asks the server to retrain on a fresh synthetic corpus of the given
// size.
func (c *Client) Train(count int) error {
	payload := protocol.EncodeCount(count)

	if err := protocol.Encode(c.conn, protocol.OpTrain, payload); err != nil {
		return c.reconnectAndRetry(protocol.OpTrain, payload)
	}
	return c.expectOK()
}

// Importance fetches the normalized feature-importance vector.
func (c *Client) Importance() ([]float64, error) {
	data, err := c.roundTrip(protocol.OpImportance, nil)
	if err != nil {
		return nil, err
	}
	v, err := protocol.DecodeVector(data)
	if err != nil {
		return nil, err
	}
	return []float64(v), nil
}

// Stats fetches the server workload counters.
func (c *Client) Stats() (map[string]uint64, error) {
	data, err := c.roundTrip(protocol.OpStats, nil)
	if err != nil {
		return nil, err
	}
	out := make(map[string]uint64)
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) roundTrip(op byte, payload []byte) ([]byte, error) {
	if err := protocol.Encode(c.conn, op, payload); err != nil {
		return c.reconnectAndRetryValue(op, payload)
	}

	pkg, err := protocol.Decode(c.conn)
	if err != nil {
		return c.reconnectAndRetryValue(op, payload)
	}
	return unwrap(pkg)
}

func (c *Client) expectOK() error {
	pkg, err := protocol.Decode(c.conn)
	if err != nil {
		return err
	}
	if pkg.Op == protocol.RespErr {
		return fmt.Errorf("server: %s", string(pkg.Payload))
	}
	if pkg.Op != protocol.RespOK {
		return errors.New("operation failed")
	}
	return nil
}

func (c *Client) reconnectAndRetry(op byte, payload []byte) error {
	if err := c.reconnect(); err != nil {
		return err
	}
	if err := protocol.Encode(c.conn, op, payload); err != nil {
		return err
	}
	return c.expectOK()
}

func (c *Client) reconnectAndRetryValue(op byte, payload []byte) ([]byte, error) {
	if err := c.reconnect(); err != nil {
		return nil, err
	}
	if err := protocol.Encode(c.conn, op, payload); err != nil {
		return nil, err
	}
	pkg, err := protocol.Decode(c.conn)
	if err != nil {
		return nil, err
	}
	return unwrap(pkg)
}

func (c *Client) reconnect() error {
	c.conn.Close()
	conn, err := net.DialTimeout("tcp", c.addr, 5*time.Second)
	if err != nil {
		return err
	}
	c.conn = conn
	return nil
}

func unwrap(pkg *protocol.Packet) ([]byte, error) {
	switch pkg.Op {
	case protocol.RespVal:
		return pkg.Payload, nil
	case protocol.RespErr:
		return nil, fmt.Errorf("server: %s", string(pkg.Payload))
	default:
		return nil, errors.New("unknown response")
	}
}
