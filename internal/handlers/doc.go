// Package handlers содержит обработчики task type'ов процесса
// рассмотрения заявки (Antrag).
//
// Каталог:
//
//	sendRejection                          публикует Message_0mrwobu {rejectionSent: true}
//	AntragUnvollstaendigNachrichtVersenden публикует Message_AntragOnline {reminderSent: true}
//	AbsageNachrichtVersenden               завершает job без переменных
//	vertragErstellen                       завершает job без переменных
//	ZusageNachrichtVersenden               завершает job без переменных
//	stornierungsbestätigung                завершает job без переменных
//	optimalenStartErmitteln                вычисляет bestStart по прогнозу
//
// Correlation key сообщений — customerID в строковом виде.
// Повторный запуск handler'а для того же job публикует то же сообщение:
// локальной дедупликации нет, доставка at-least-once.
package handlers
