package session

import (
	"encoding/json"
	"fmt"
)

// Stage es la etapa del ciclo de login.
//
//	LOGIN -> POST_LOGIN -> LOGGED_IN
//	POST_LOGIN -> LOGGED_IN_AT_LOAD   (deadline o error de bootstrap)
//	LOGGED_IN_AT_LOAD -> LOGGED_IN    (bootstrap tardío)
//	* -> LOGIN                        (logout, vencimiento, 401, error de login)
type Stage int

const (
	StageLogin Stage = iota
	StagePostLogin
	StageLoggedIn
	StageLoggedInAtLoad
)

func (s Stage) String() string {
	switch s {
	case StageLogin:
		return "LOGIN"
	case StagePostLogin:
		return "POST_LOGIN"
	case StageLoggedIn:
		return "LOGGED_IN"
	case StageLoggedInAtLoad:
		return "LOGGED_IN_AT_LOAD"
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

func (s Stage) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}
