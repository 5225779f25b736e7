package network

import (
	"encoding/json"
	"io"
	"log"
	"net"

	"riskcore/pkg/common"
	"riskcore/pkg/core"
	"riskcore/pkg/protocol"
)

type TCPServer struct {
	engine *core.Engine
}

func NewTCPServer(engine *core.Engine) *TCPServer {
	return &TCPServer{engine: engine}
}

func (s *TCPServer) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	log.Printf("[TCP] Listening on %s (Binary Protocol)", addr)
	return s.Serve(listener)
}

// Serve accepts connections until the listener is closed.
func (s *TCPServer) Serve(listener net.Listener) error {
	for {
		conn, err := listener.Accept()
		if err != nil {
			return err
		}
		go s.handleConn(conn)
	}
}

func (s *TCPServer) handleConn(conn net.Conn) {
	defer conn.Close()

	for {
		req, err := protocol.Decode(conn)
		if err != nil {
			if err != io.EOF {
				log.Printf("[TCP] Decode error: %v", err)
			}
			return
		}

		switch req.Op {
		case protocol.OpPredict:
			features, err := protocol.DecodeVector(req.Payload)
			if err != nil {
				protocol.Encode(conn, protocol.RespErr, []byte(err.Error()))
				continue
			}
			rec, err := s.engine.Predict(features)
			if err != nil {
				protocol.Encode(conn, protocol.RespErr, []byte(err.Error()))
				continue
			}
			protocol.Encode(conn, protocol.RespVal, protocol.EncodePrediction(rec.Label, rec.Probability))

		case protocol.OpTrain:
			count, err := protocol.DecodeCount(req.Payload)
			if err != nil {
				protocol.Encode(conn, protocol.RespErr, []byte(err.Error()))
				continue
			}
			if err := s.engine.Retrain(count); err != nil {
				protocol.Encode(conn, protocol.RespErr, []byte(err.Error()))
				continue
			}
			protocol.Encode(conn, protocol.RespOK, nil)

		case protocol.OpImportance:
			importance := common.FeatureVector(s.engine.Importance())
			protocol.Encode(conn, protocol.RespVal, protocol.EncodeVector(importance))

		case protocol.OpStats:
			payload, err := json.Marshal(s.engine.Stats().Snapshot())
			if err != nil {
				protocol.Encode(conn, protocol.RespErr, []byte(err.Error()))
				continue
			}
			protocol.Encode(conn, protocol.RespVal, payload)

		default:
			protocol.Encode(conn, protocol.RespErr, []byte("unknown op"))
		}
	}
}
