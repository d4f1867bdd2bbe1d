package domain

// Entity-specific attribute shapes, decoded from MutationRecord.Raw by the
// handler that owns the (kind, operation) pair. Field tags follow the inbound
// wire contract verbatim, including its quirks (MontoReferncial).

type ClientAttributes struct {
	UniqueName      string `json:"NomUnicoCliente"`
	SourceID        int64  `json:"IdRdsRegistro"`
	FirstName       string `json:"Nombre"`
	LastName        string `json:"Apellido"`
	GenderCode      string `json:"CodigoSexo"`
	BirthDate       string `json:"FechaNacimiento"`
	CityCode        string `json:"CodigoCiudad"`
	CountryCode     string `json:"CodigoPais"`
	Address         string `json:"Direccion"`
	MobilePhone     string `json:"TelefonoMovil"`
	Email           string `json:"CorreoElectronico"`
	CreatedAt       string `json:"FechaCreacion"`
	UpdatedAt       string `json:"FechaUltimaModificacion"`
	RegisteredAt    string `json:"FechaRegistro"`
	RegistrationApp string `json:"AppRegistro"`
	LoginType       string `json:"TipoLogin"`
	State           string `json:"Estado"`
}

type ClientBusinessAttributes struct {
	Client    *ForeignKey `json:"IdCliente"`
	Business  *ForeignKey `json:"IdNegocio"`
	CreatedAt string      `json:"FechaCreacion"`
	Rating    *float64    `json:"Rating"`
}

type AccruedValue struct {
	AccountBalance  float64 `json:"SaldoCuenta"`
	SessionProgress float64 `json:"AvancePartida"`
}

type EventAttributes struct {
	UniqueNumber     string         `json:"NumeroUnico"`
	Client           *ForeignKey    `json:"IdCliente"`
	Location         *ForeignKey    `json:"IdLocal"`
	EventType        *ForeignKey    `json:"IdTipoEvento"`
	ResponsibleUser  *ForeignKey    `json:"IdUsuarioResponsable"`
	CreatedAt        string         `json:"FechaCreacion"`
	Value            float64        `json:"Valor"`
	State            string         `json:"Estado"`
	CustomerCodeType string         `json:"TipoCodigoCliente"`
	CustomerCode     string         `json:"CodigoCliente"`
	VoucherCode      string         `json:"CodigoCupon"`
	AccruedValues    []AccruedValue `json:"ValoresAcumulados"`

	// Reversal-only fields.
	ReversedValue     *float64 `json:"ValorReversado"`
	ReversedEventDate string   `json:"FechaEventoReversado"`
	ReversedPrizeID   *int64   `json:"IdPremioReversado"`
}

type RedemptionAttributes struct {
	Client          *ForeignKey `json:"IdCliente"`
	Business        *ForeignKey `json:"IdNegocio"`
	Location        *ForeignKey `json:"IdLocal"`
	Account         *ForeignKey `json:"IdCuenta"`
	Prize           *ForeignKey `json:"IdPremio"`
	RedeemedAt      string      `json:"FechaRedencion"`
	Value           float64     `json:"Valor"`
	ReferenceAmount float64     `json:"MontoReferncial"`
}

type AccountAttributes struct {
	UniqueNumber         string      `json:"NumeroUnico"`
	Client               *ForeignKey `json:"IdCliente"`
	Business             *ForeignKey `json:"IdNegocio"`
	AvailableBalance     float64     `json:"SaldoDisponible"`
	AvailableBalanceBase float64     `json:"SaldoDisponibleBase"`
	LedgerBalance        float64     `json:"SaldoContable"`
	LedgerBalanceBase    float64     `json:"SaldoContableBase"`
	OpenedAt             string      `json:"FechaApertura"`
	EffectiveAt          string      `json:"FechaVigencia"`
	ExpiresAt            string      `json:"FechaExpiracion"`
	State                string      `json:"Estado"`
}

type GameSessionAttributes struct {
	UniqueNumber string      `json:"NumeroUnico"`
	Client       *ForeignKey `json:"IdCliente"`
	ReachedValue float64     `json:"ValorAlcanzado"`
	Progress     float64     `json:"Progreso"`
	ClientValue  float64     `json:"ValorCliente"`
	CreatedAt    string      `json:"FechaCreacion"`
	EndedAt      string      `json:"FechaFin"`
	State        string      `json:"Estado"`
	Repetition   int         `json:"Repeticion"`
}

type CustomerCodeAttributes struct {
	Code        string      `json:"Codigo"`
	CreatedAt   string      `json:"FechaCreacion"`
	ActivatedAt string      `json:"FechaActivacion"`
	State       string      `json:"Estado"`
	Client      *ForeignKey `json:"IdCliente"`
	Location    *ForeignKey `json:"IdLocal"`
	Business    *ForeignKey `json:"IdNegocio"`
}

type NotificationLogAttributes struct {
	Title           string      `json:"Titulo"`
	Message         string      `json:"Mensaje"`
	GroupUniqueName string      `json:"NombreUnicoGrupo"`
	Error           string      `json:"Error"`
	Channel         string      `json:"Canal"`
	State           string      `json:"Estado"`
	SentAt          string      `json:"FechaEnvio"`
	Client          *ForeignKey `json:"IdCliente"`
	Business        *ForeignKey `json:"IdNegocio"`
}
