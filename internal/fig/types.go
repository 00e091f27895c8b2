// Package fig implements the FIG (Fast Information Group) parser and the
// staging/stable ensemble database it updates. FIGs are variable-length
// records packed inside each validated FIB; FIG type 0 carries MCI
// (multiplex configuration information — ensemble, service, subchannel,
// and service-component records) and FIG type 1 carries textual labels.
// Grounded on the FIG layout described in ETSI EN 300 401 clause 5.2 and
// this project's SPEC_FULL.md §4.4.
package fig

// Ensemble is the top-level MCI record (FIG 0/0).
type Ensemble struct {
	EnsembleID    uint16
	ChangeFlag    uint8
	Alarm         bool
	CIFCountHigh  uint8
	CIFCountLow   uint16
	Label         string
	ShortLabel    string
	CountryID     uint8
	LocalTimeOffsetHalfHours int8
}

// SubChannel describes one MSC subchannel's addressing and error
// protection (FIG 0/1).
type SubChannel struct {
	SubChannelID  uint8
	StartAddress  uint16 // capacity unit offset within the CIF
	Size          uint16 // capacity units
	IsUEP         bool
	UEPTableIndex uint8 // valid when IsUEP
	EEPProfileB   bool  // false = profile A, true = profile B (valid when !IsUEP)
	EEPLevel      uint8 // 0-3 (valid when !IsUEP)
}

// Service is a programme or data service (FIG 0/2).
type Service struct {
	ServiceID       uint32
	IsProgramme     bool
	CountryID       uint8
	NumComponents   uint8
	Label           string
	ShortLabel      string
	ProgrammeType   uint8
	Language        uint8
}

// ServiceComponent links a service to the subchannel or packet-mode
// transport carrying it (FIG 0/8, with stream-mode addressing from FIG
// 0/2's component count and FIG 0/3 for packet mode).
type ServiceComponent struct {
	ServiceID    uint32
	SCIdS        uint8 // service component identifier within the service
	IsPacketMode bool
	SubChannelID uint8  // valid when !IsPacketMode
	TransportID  uint16 // valid when IsPacketMode
	DataServiceComponentType uint8
	IsPrimary    bool
	Label        string
	ShortLabel   string
}

// UserApplication records a FIG 0/13 user application association
// (e.g. MOT slideshow, journaline) for a service component, optionally
// labelled by a later FIG 1/6 (X-PAD user application label).
type UserApplication struct {
	ServiceID  uint32
	SCIdS      uint8
	AppType    uint16
	Data       []byte
	Label      string
	ShortLabel string
}

// PacketComponent links a packet-mode service component's ensemble-wide
// SCId to its host subchannel and in-subchannel packet address (FIG 0/3).
type PacketComponent struct {
	SCId          uint16
	SubChannelID  uint8
	PacketAddress uint16
	DSCTy         uint8
	CAFlag        bool
}

// ConditionalAccess is a minimal FIG 0/4 record naming the conditional
// access system (CAId) declared for a service component. The descriptor's
// access-control sub-fields are not decoded: encrypted DAB ensembles are
// essentially unseen in deployed networks and out of this receiver's
// scope, which targets unencrypted broadcast reception; see DESIGN.md.
type ConditionalAccess struct {
	ServiceID uint32
	SCIdS     uint8
	CAId      uint8
}

// OtherEnsembleService cross-references a service also carried on other
// ensembles (FIG 0/24).
type OtherEnsembleService struct {
	ServiceID   uint32
	EnsembleIDs []uint16
}

// DateTime is the ensemble's current UTC date and time (FIG 0/10).
type DateTime struct {
	MJD          uint32 // Modified Julian Day
	Hour         uint8
	Minute       uint8
	Second       uint8 // valid when UTCFlag
	Milliseconds uint16 // valid when UTCFlag
	UTCFlag      bool   // true if Second/Milliseconds are present (long form)
	LeapSecond   bool
}

// key identifies a record for the purposes of change detection /
// staged promotion.
type subChannelKey uint8
type serviceKey uint32
type componentKey struct {
	ServiceID uint32
	SCIdS     uint8
}
