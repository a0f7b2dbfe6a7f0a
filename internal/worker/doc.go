// Package worker получает job'ы из движка и передаёт их handler'ам.
//
// # Обзор
//
// Worker — stateless компонент: всё состояние процесса хранит движок.
// Worker отвечает за:
//
//   - Регистрацию handler'ов по task type (Registry)
//   - Отдельный поток активации job'ов для каждого task type
//   - Ограничение числа одновременно обрабатываемых job'ов
//   - Проверку обязательных переменных до вызова handler'а
//   - Отправку ровно одного outcome на каждый обработанный job
//
// Повторов внутри процесса нет. Повтор выполняет движок: по счётчику
// retries из FAIL или повторной выдачей job после истечения блокировки.
// Поэтому handler'ы должны быть безопасны при повторном запуске.
//
// # Ключевые компоненты
//
// ## Registry
//
//	reg := worker.NewRegistry()
//	err := reg.Register(worker.Registration{
//	    TaskType:    "sendRejection",
//	    Concurrency: 32,
//	    Required:    []string{"customerID"},
//	    Handler:     worker.HandlerFunc(sendRejection),
//	})
//
// Повторная регистрация task type — ошибка конфигурации (ErrDuplicateTaskType).
//
// ## Worker
//
//	w := worker.New(worker.Config{
//	    Client:   zeebe,
//	    Registry: reg,
//	    Logger:   logger,
//	})
//	w.Start(ctx)
//	defer w.Stop()
//
// Каждый task type обслуживается своим потоком (горутиной) с собственным
// semaphore.Weighted. Поток ждёт свободный слот, забирает все остальные
// свободные слоты и запрашивает столько job'ов, сколько слотов получил.
// Медленный handler занимает только слоты своего task type.
//
// ## Reporter
//
// Переводит Outcome в вызов движка (Complete/Fail/ThrowError) и уведомляет
// OutcomeSink'и (события в RabbitMQ, журнал в Postgres). Ошибка sink'а
// не меняет outcome job'а.
//
// # Ошибки handler'а
//
//   - nil → COMPLETE с возвращёнными переменными
//   - BusinessError → ERROR(code)
//   - TRANSIENT → FAIL(retries-1)
//   - CONFIG, DATA_SHAPE → FAIL(0)
//   - panic → FAIL(retries-1), стек в логе
package worker
