// Package forecast определяет оптимальное время старта по прогнозу
// углеродной интенсивности.
//
// Client — HTTP-клиент сервиса прогнозов (Carbon Aware API):
//
//	GET {base}/emissions/forecasts/current?location={region}&windowSize={minutes}
//	x-api-key: <key>
//
// Resolver выбирает первую (лучшую) точку из optimalDataPoints и переводит
// её в целевую временную зону с учётом летнего времени.
//
// Ошибки классифицируются в месте вызова:
//   - 401/403 и прочие 4xx → CONFIG (повтор не поможет)
//   - 429, 5xx, сетевые ошибки → TRANSIENT
//   - неразбираемый ответ, пустой список точек → DATA_SHAPE
package forecast
