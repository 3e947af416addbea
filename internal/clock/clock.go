// Package clock abstrae el tiempo para el monitor de sesión y los timers
// del controller.
package clock

import "time"

// Timer es un callback programado que se puede cancelar.
type Timer interface {
	Stop() bool
}

// Clock abstrae el tiempo. La matemática de sesión usa instantes absolutos
// (Now) para no derivar tras suspender/reanudar.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

// Real usa el reloj del sistema; los callbacks corren en su propia
// goroutine.
func Real() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
