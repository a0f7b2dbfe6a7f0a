// Package config читает конфигурацию worker'а и CLI из переменных окружения.
//
// Переменные могут быть предзагружены из .env файла (LoadEnvFile).
// Уже заданные в окружении значения .env не перекрывает.
//
// Конфигурация строится один раз в main и передаётся компонентам явно.
package config
