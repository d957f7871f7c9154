package logger

import (
	"time"

	"go.uber.org/zap"
)

// ─── Sistema ───

// Component crea un campo para el componente/módulo.
func Component(v string) zap.Field { return zap.String("component", v) }

// Op crea un campo para la operación actual.
func Op(v string) zap.Field { return zap.String("op", v) }

// Err crea un campo para un error.
func Err(err error) zap.Field { return zap.Error(err) }

// Duration crea un campo para la duración de una operación.
func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }

// NodeID identifica la réplica local.
func NodeID(v string) zap.Field { return zap.String("node_id", v) }

// ─── HTTP ───

func HTTPMethod(v string) zap.Field { return zap.String("http_method", v) }
func Path(v string) zap.Field       { return zap.String("path", v) }
func Status(v int) zap.Field        { return zap.Int("status", v) }
func RequestID(v string) zap.Field { return zap.String("request_id", v) }
func Bytes(v int) zap.Field         { return zap.Int("bytes", v) }

// ─── Bundle ───

// BundleID crea un campo para el id del bundle.
func BundleID(v string) zap.Field { return zap.String("bundle_id", v) }

// BundleVersion crea un campo para la versión declarada en el descriptor.
func BundleVersion(v string) zap.Field { return zap.String("bundle_version", v) }

// Checksum crea un campo para el digest del bundle.
func Checksum(v string) zap.Field { return zap.String("checksum", v) }

// BundlePath crea un campo para una ruta de bundle en disco.
func BundlePath(v string) zap.Field { return zap.String("bundle_path", v) }

// Section crea un campo para una sección del bundle (jcasc, items, ...).
func Section(v string) zap.Field { return zap.String("section", v) }

// Phase crea un campo para la fase del ciclo de actualización.
func Phase(v string) zap.Field { return zap.String("phase", v) }

// Folder crea un campo para la carpeta de un candidato en el update log.
func Folder(v string) zap.Field { return zap.String("folder", v) }

// ─── Replicación ───

// Method crea un campo para el nombre del mutador replicado.
func Method(v string) zap.Field { return zap.String("method", v) }

// Target crea un campo para la identidad del objeto replicado.
func Target(v string) zap.Field { return zap.String("target", v) }

// Origin crea un campo para el nodo que originó una llamada.
func Origin(v string) zap.Field { return zap.String("origin", v) }

// CallID crea un campo para el id de una llamada replicada.
func CallID(v string) zap.Field { return zap.String("call_id", v) }

// ─── Genéricos ───

func Count(v int) zap.Field             { return zap.Int("count", v) }
func String(key, v string) zap.Field    { return zap.String(key, v) }
func Int(key string, v int) zap.Field   { return zap.Int(key, v) }
func Bool(key string, v bool) zap.Field { return zap.Bool(key, v) }
func Any(key string, v any) zap.Field   { return zap.Any(key, v) }
