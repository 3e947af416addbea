// Package auth resuelve la estrategia de autenticación y corre el protocolo
// de login en dos fases (Prepare, Perform).
package auth

import (
	"fmt"
	"strings"
)

type StrategyKind string

const (
	KindAnonymous StrategyKind = "anonymous"
	KindToken     StrategyKind = "token"
	KindHeader    StrategyKind = "header"
	KindOpenID    StrategyKind = "openid"
	KindOpenShift StrategyKind = "openshift"
)

// Strategy es un sum type cerrado: solo las variantes de este paquete lo
// implementan. El único punto de despacho es el type switch del Dispatcher.
type Strategy interface {
	Kind() StrategyKind
	// RequiresInteraction indica si hace falta que el usuario aporte algo
	// (token, redirect) antes de poder autenticar.
	RequiresInteraction() bool
	isStrategy()
}

type Anonymous struct{}

func (Anonymous) Kind() StrategyKind        { return KindAnonymous }
func (Anonymous) RequiresInteraction() bool { return false }
func (Anonymous) isStrategy()               {}

type Token struct{}

func (Token) Kind() StrategyKind        { return KindToken }
func (Token) RequiresInteraction() bool { return true }
func (Token) isStrategy()               {}

// Header: un proxy delante del backend inyecta la identidad.
type Header struct{}

func (Header) Kind() StrategyKind        { return KindHeader }
func (Header) RequiresInteraction() bool { return false }
func (Header) isStrategy()               {}

// OAuth cubre openid y openshift; ambos redirigen al authorization endpoint.
type OAuth struct {
	Flavor StrategyKind
}

func (o OAuth) Kind() StrategyKind      { return o.Flavor }
func (OAuth) RequiresInteraction() bool { return true }
func (OAuth) isStrategy()               {}

// ResolveStrategy mapea el nombre publicado por el backend a su variante.
func ResolveStrategy(name string) (Strategy, error) {
	switch StrategyKind(strings.ToLower(strings.TrimSpace(name))) {
	case KindAnonymous:
		return Anonymous{}, nil
	case KindToken:
		return Token{}, nil
	case KindHeader:
		return Header{}, nil
	case KindOpenID:
		return OAuth{Flavor: KindOpenID}, nil
	case KindOpenShift:
		return OAuth{Flavor: KindOpenShift}, nil
	default:
		return nil, fmt.Errorf("auth: unknown strategy %q", name)
	}
}
