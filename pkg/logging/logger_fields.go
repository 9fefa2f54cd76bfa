package logging

import (
	"time"
)

func String(key, value string) Field        { return Field{Key: key, Value: value} }
func Int(key string, value int) Field       { return Field{Key: key, Value: value} }
func Int64(key string, value int64) Field   { return Field{Key: key, Value: value} }
func Uint64(key string, value uint64) Field { return Field{Key: key, Value: value} }
func Float64(key string, value float64) Field { return Field{Key: key, Value: value} }
func Bool(key string, value bool) Field { return Field{Key: key, Value: value} }
func Any(key string, value any) Field   { return Field{Key: key, Value: value} }

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Domain fields

func Component(name string) Field { return String("component", name) }
func Operation(op string) Field   { return String("operation", op) }
func EntityID(id string) Field    { return String("entity_id", id) }

func RelationshipID(id string) Field { return String("relationship_id", id) }
func Depth(d int) Field              { return Int("depth", d) }
func Version(v uint64) Field         { return Uint64("snapshot_version", v) }
func RiskLevel(level string) Field   { return String("risk_level", level) }
func RequestID(id string) Field      { return String("request_id", id) }
func Latency(d time.Duration) Field  { return Duration("latency", d) }
func Count(n int) Field              { return Int("count", n) }
