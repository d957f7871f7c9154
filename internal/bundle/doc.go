// Package bundle modela un bundle de configuración en disco: un directorio con un
// descriptor (bundle.yaml) que declara, por sección, los archivos que lo componen.
//
// Un Bundle se abre en modo tolerante (Open) para comparar, donde un descriptor ausente
// o inválido equivale a "sin archivos", o en modo estricto (Load) para validar y aplicar.
package bundle
