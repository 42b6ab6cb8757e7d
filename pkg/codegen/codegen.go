// Package codegen serializes a materialized OpGraph into the opaque
// command-stream byte blob the hardware driver consumes (spec §6:
// "Command stream: opaque byte blob emitted by the command-stream
// serializer; buffer ID 0 is always the command stream itself").
//
// The wire format of individual hardware commands is a collaborator detail
// the specification deliberately leaves opaque (unlike the bit-exact weight
// stream of §4.6.4). This package emits one fixed-size command record per
// op in topological order — enough for the buffer manager and debug dumps
// to treat the result as a real, sized blob — grounded on the teacher's
// binary encoding helpers in util/bytex (pooled buffer growth) and
// internal/bitio (the same little-endian field-packing idiom used for
// weight headers).
package codegen

import (
	"encoding/binary"

	"github.com/gpustack/npu-compiler-core/internal/bytex"
	"github.com/gpustack/npu-compiler-core/pkg/opgraph"
)

// commandRecordSize is the fixed size, in bytes, of one serialized command:
// a 1-byte opcode, a 1-byte input count, up to 4 4-byte buffer IDs, and a
// 4-byte output buffer ID.
const commandRecordSize = 1 + 1 + 4*4 + 4

// maxInputsPerCommand bounds how many of an op's inputs are encoded inline;
// ops needing more (none currently defined by spec §3) would require a
// variable-length record, which this fixed-size format does not support.
const maxInputsPerCommand = 4

// Generate serializes g's ops, in topological order, into one command
// stream. Returns an error if any op has more inputs than the fixed-size
// record can hold.
func Generate(g *opgraph.OpGraph) ([]byte, error) {
	buf := bytex.GetBuffer(uint64(len(g.Ops) * commandRecordSize))
	defer bytex.Put(buf)

	record := make([]byte, commandRecordSize)
	for _, opID := range g.TopoOrder() {
		op := g.Ops[opID]
		if len(op.Inputs) > maxInputsPerCommand {
			return nil, &ErrTooManyInputs{OpID: int(opID), Count: len(op.Inputs)}
		}

		for i := range record {
			record[i] = 0
		}
		record[0] = byte(op.Kind)
		record[1] = byte(len(op.Inputs))
		for i, in := range op.Inputs {
			binary.LittleEndian.PutUint32(record[2+i*4:], uint32(in))
		}
		binary.LittleEndian.PutUint32(record[2+maxInputsPerCommand*4:], uint32(op.Output))
		buf.Write(record)
	}

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

// ErrTooManyInputs is returned when an op's input count exceeds what the
// fixed-size command record can encode.
type ErrTooManyInputs struct {
	OpID  int
	Count int
}

func (e *ErrTooManyInputs) Error() string {
	return "codegen: op has more inputs than a command record can hold"
}
