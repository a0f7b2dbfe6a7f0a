// Package correlation публикует correlated messages в движок.
//
// Сообщение адресуется ожидающему process instance по паре
// (имя сообщения, correlation key). Ключ строится детерминированно,
// поэтому повторная обработка того же job публикует то же сообщение.
//
// Локальной дедупликации нет: доставка at-least-once.
package correlation
