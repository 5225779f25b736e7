package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"riskcore/pkg/common"
)

const (
	MagicNumber = 0x52

	OpPredict    = 0x01
	OpTrain      = 0x02
	OpImportance = 0x03
	OpStats      = 0x04

	RespOK  = 0x00
	RespErr = 0xFF
	RespVal = 0x01
)

type Packet struct {
	Op      byte
	Payload []byte
}

// Encode writes one frame: [Magic 1B] [Op 1B] [PayloadLen 4B] [Payload NB].
func Encode(w io.Writer, op byte, payload []byte) error {
	header := make([]byte, 6)
	header[0] = MagicNumber
	header[1] = op
	binary.BigEndian.PutUint32(header[2:6], uint32(len(payload)))

	if _, err := w.Write(header); err != nil {
		return err
	}
	if len(payload) > 0 {
		if _, err := w.Write(payload); err != nil {
			return err
		}
	}
	return nil
}

func Decode(r io.Reader) (*Packet, error) {
	header := make([]byte, 6)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	if header[0] != MagicNumber {
		return nil, errors.New("invalid magic number")
	}

	op := header[1]
	pLen := binary.BigEndian.Uint32(header[2:6])

	payload := make([]byte, pLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}

	return &Packet{Op: op, Payload: payload}, nil
}

// EncodeVector packs a feature vector as big-endian float64 values.
func EncodeVector(v common.FeatureVector) []byte {
	out := make([]byte, 8*len(v))
	for i, x := range v {
		binary.BigEndian.PutUint64(out[8*i:], math.Float64bits(x))
	}
	return out
}

// DecodeVector unpacks a big-endian float64 sequence.
func DecodeVector(payload []byte) (common.FeatureVector, error) {
	if len(payload)%8 != 0 {
		return nil, fmt.Errorf("vector payload length %d not a multiple of 8", len(payload))
	}
	v := make(common.FeatureVector, len(payload)/8)
	for i := range v {
		v[i] = math.Float64frombits(binary.BigEndian.Uint64(payload[8*i:]))
	}
	return v, nil
}

// EncodePrediction packs a predict response: [Label 1B] [Probability 8B].
func EncodePrediction(label common.RiskLabel, probability float64) []byte {
	out := make([]byte, 9)
	out[0] = byte(label)
	binary.BigEndian.PutUint64(out[1:], math.Float64bits(probability))
	return out
}

// DecodePrediction unpacks a predict response payload.
func DecodePrediction(payload []byte) (common.RiskLabel, float64, error) {
	if len(payload) != 9 {
		return 0, 0, fmt.Errorf("prediction payload length %d, want 9", len(payload))
	}
	label := common.RiskLabel(payload[0])
	prob := math.Float64frombits(binary.BigEndian.Uint64(payload[1:]))
	return label, prob, nil
}

// EncodeCount packs a train request corpus size.
func EncodeCount(count int) []byte {
	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, uint32(count))
	return out
}

// DecodeCount unpacks a train request corpus size.
func DecodeCount(payload []byte) (int, error) {
	if len(payload) != 4 {
		return 0, fmt.Errorf("count payload length %d, want 4", len(payload))
	}
	return int(binary.BigEndian.Uint32(payload)), nil
}
