package rowexec

import (
	"github.com/qiulin/qwery/device"
	"github.com/qiulin/qwery/runtime"
	"github.com/qiulin/qwery/value"
)

// recordToRow adapts a device.Record (the I/O layer's row shape) to a
// runtime.Row (the evaluator's row shape), per device.go's note that
// rowexec is the layer that converts between the two.
func recordToRow(rec device.Record) runtime.Row {
	names := make([]string, len(rec))
	values := make([]value.Value, len(rec))
	for i, f := range rec {
		names[i] = f.Name
		values[i] = f.Value
	}
	return runtime.NewRow(names, values)
}

func rowToRecord(row runtime.Row) device.Record {
	rec := make(device.Record, row.Len())
	for i := 0; i < row.Len(); i++ {
		rec[i] = device.Field{Name: row.NameAt(i), Value: row.At(i)}
	}
	return rec
}
