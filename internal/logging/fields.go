package logging

import "time"

// Field constructors. Names match the domain of the pathfinding engine
// rather than the generic graph-storage entities the teacher logged.

func String(key, value string) Field { return Field{Key: key, Value: value} }
func Int(key string, value int) Field { return Field{Key: key, Value: value} }
func Int64(key string, value int64) Field { return Field{Key: key, Value: value} }
func Uint64(key string, value uint64) Field { return Field{Key: key, Value: value} }
func Uint16(key string, value uint16) Field { return Field{Key: key, Value: value} }
func Float64(key string, value float64) Field { return Field{Key: key, Value: value} }
func Bool(key string, value bool) Field { return Field{Key: key, Value: value} }

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

func Any(key string, value any) Field { return Field{Key: key, Value: value} }

// Component-specific helpers used by the engine's subsystems.

func Component(name string) Field   { return String("component", name) }
func WorkerID(id int) Field         { return Int("worker_id", id) }
func PathID(id uint16) Field        { return Uint16("path_id", id) }
func NodeIndex(idx int32) Field     { return Int64("node_index", int64(idx)) }
func GraphIndex(idx uint8) Field    { return Int("graph_index", int(idx)) }
func AreaID(id uint32) Field        { return Uint64("area_id", uint64(id)) }
func Operation(op string) Field     { return String("operation", op) }
func Latency(d time.Duration) Field { return Duration("latency", d) }
func Count(n int) Field             { return Int("count", n) }
func EngineID(id string) Field      { return String("engine_id", id) }
