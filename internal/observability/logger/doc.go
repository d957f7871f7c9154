// Package logger expone el logger Zap del proceso y helpers de campos para el dominio
// de bundles y replicación.
//
//   - Singleton: una sola instancia inicializada con Init() desde cmd/bundled.
//   - Scoping: cada operación (check, reload, llamada remota) puede viajar con su propio
//     logger en el context (ToContext/From) sin crear un nuevo core.
//   - Environments: "dev" usa consola con colores, "prod" usa JSON.
//   - Nivel: SetLevel lo cambia en caliente (cmd/bundled lo relee en SIGHUP).
//
// Uso:
//
//	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, NodeID: cfg.Node.ID})
//	defer logger.Sync()
//
//	log := logger.From(ctx).With(logger.Op("CheckForUpdate"))
//	log.Info("new bundle version found", logger.BundleVersion(v.Version))
package logger
