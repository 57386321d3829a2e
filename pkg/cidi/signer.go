package cidi

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"time"
	_ "time/tzdata"
)

// TimestampLayout es yyyyMMddHHmmssfff; el punto se quita al formatear
const TimestampLayout = "20060102150405.000"

// providerLocation es la zona horaria en la que opera CiDi
var providerLocation = loadProviderLocation()

func loadProviderLocation() *time.Location {
	if loc, err := time.LoadLocation("America/Argentina/Cordoba"); err == nil {
		return loc
	}
	return time.FixedZone("ART", -3*60*60)
}

// Timestamp formatea t en hora de Argentina como yyyyMMddHHmmssfff
func Timestamp(t time.Time) string {
	return strings.Replace(t.In(providerLocation).Format(TimestampLayout), ".", "", 1)
}

// Sign calcula el TokenValue que exige CiDi: SHA-1 sobre ASCII(timestamp +
// secret), en hexadecimal mayúscula (40 caracteres). Falla con entrada no
// ASCII en lugar de truncarla.
func Sign(timestamp, secret string) (string, error) {
	input := timestamp + secret
	for i := 0; i < len(input); i++ {
		if input[i] > 0x7F {
			return "", ErrNonASCIIInput()
		}
	}

	sum := sha1.Sum([]byte(input))
	return strings.ToUpper(hex.EncodeToString(sum[:])), nil
}

// Entrada es el cuerpo de Obtener_Usuario_Aplicacion. Los punteros nil se
// omiten del JSON.
type Entrada struct {
	IdAplicacion       int     `json:"IdAplicacion"`
	Contrasenia        string  `json:"Contrasenia"`
	TokenValue         string  `json:"TokenValue"`
	TimeStamp          string  `json:"TimeStamp"`
	CUIL               *string `json:"CUIL,omitempty"`
	HashCookie         *string `json:"HashCookie,omitempty"`
	SesionHash         *string `json:"SesionHash,omitempty"`
	CUILOperador       *string `json:"CUILOperador,omitempty"`
	HashCookieOperador *string `json:"HashCookieOperador,omitempty"`
}

// Signer arma Entradas firmadas para una aplicación
type Signer struct {
	idAplicacion int
	contrasenia  string
	clientKey    string
	now          func() time.Time
}

func NewSigner(idAplicacion int, clientSecret, clientKey string) *Signer {
	return &Signer{
		idAplicacion: idAplicacion,
		contrasenia:  clientSecret,
		clientKey:    clientKey,
		now:          time.Now,
	}
}

// NewEntrada firma una consulta de usuario final por hash de cookie. Los
// campos de operador y sesión quedan en nil.
func (s *Signer) NewEntrada(cookieHash string) (*Entrada, error) {
	ts := Timestamp(s.now())
	token, err := Sign(ts, s.clientKey)
	if err != nil {
		return nil, err
	}

	return &Entrada{
		IdAplicacion: s.idAplicacion,
		Contrasenia:  s.contrasenia,
		TokenValue:   token,
		TimeStamp:    ts,
		HashCookie:   &cookieHash,
	}, nil
}
