package fig

import "sync"

// promoteThreshold is the number of consecutive identical observations of
// a record required before it is promoted from staging into the stable
// database, absorbing the FIC's repeated, redundantly-transmitted updates
// and avoiding transient single-bad-CIF corruption from reaching
// consumers.
const promoteThreshold = 3

// staged tracks a candidate value and how many consecutive times it has
// been observed unchanged.
type staged[T comparable] struct {
	value T
	count int
}

// observe records a new observation of value. It returns true the moment
// the value reaches promoteThreshold consecutive identical observations
// (a change from the previous value resets the count to 1).
func (s *staged[T]) observe(value T) bool {
	if s.count > 0 && s.value == value {
		s.count++
	} else {
		s.value = value
		s.count = 1
	}
	return s.count == promoteThreshold
}

// Database is the ensemble-wide record store built from decoded FIGs. It
// separates a "stable" snapshot (safe for consumers to read) from
// per-record staging counters so a single corrupted FIB cannot flip a
// visible record; only a value repeated promoteThreshold times in a row
// is promoted.
type Database struct {
	mu sync.RWMutex

	ensemble       staged[Ensemble]
	ensembleStable Ensemble
	haveEnsemble   bool

	subChannels       map[subChannelKey]*staged[SubChannel]
	subChannelsStable map[subChannelKey]SubChannel

	services       map[serviceKey]*staged[Service]
	servicesStable map[serviceKey]Service

	components       map[componentKey]*staged[ServiceComponent]
	componentsStable map[componentKey]ServiceComponent

	userApps []UserApplication

	packetComponents map[uint16]PacketComponent
	caRecords        []ConditionalAccess
	oeServices       map[uint32]OtherEnsembleService

	dateTime     DateTime
	haveDateTime bool
}

// NewDatabase creates an empty Database.
func NewDatabase() *Database {
	return &Database{
		subChannels:       make(map[subChannelKey]*staged[SubChannel]),
		subChannelsStable: make(map[subChannelKey]SubChannel),
		services:          make(map[serviceKey]*staged[Service]),
		servicesStable:    make(map[serviceKey]Service),
		components:        make(map[componentKey]*staged[ServiceComponent]),
		componentsStable:  make(map[componentKey]ServiceComponent),
		packetComponents:  make(map[uint16]PacketComponent),
		oeServices:        make(map[uint32]OtherEnsembleService),
	}
}

// UpdateEnsemble stages a newly decoded FIG 0/0 record.
func (db *Database) UpdateEnsemble(e Ensemble) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.ensemble.observe(e) {
		db.ensembleStable = e
		db.haveEnsemble = true
	}
}

// Ensemble returns the stable ensemble record, if one has been promoted.
func (db *Database) Ensemble() (Ensemble, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.ensembleStable, db.haveEnsemble
}

// UpdateSubChannel stages a newly decoded FIG 0/1 record.
func (db *Database) UpdateSubChannel(sc SubChannel) {
	db.mu.Lock()
	defer db.mu.Unlock()
	key := subChannelKey(sc.SubChannelID)
	st, ok := db.subChannels[key]
	if !ok {
		st = &staged[SubChannel]{}
		db.subChannels[key] = st
	}
	if st.observe(sc) {
		db.subChannelsStable[key] = sc
	}
}

// SubChannel returns the stable subchannel record for id, if present.
func (db *Database) SubChannel(id uint8) (SubChannel, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	sc, ok := db.subChannelsStable[subChannelKey(id)]
	return sc, ok
}

// SubChannels returns a snapshot of every stable subchannel record.
func (db *Database) SubChannels() []SubChannel {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]SubChannel, 0, len(db.subChannelsStable))
	for _, sc := range db.subChannelsStable {
		out = append(out, sc)
	}
	return out
}

// UpdateService stages a newly decoded FIG 0/2 record.
func (db *Database) UpdateService(s Service) {
	db.mu.Lock()
	defer db.mu.Unlock()
	key := serviceKey(s.ServiceID)
	st, ok := db.services[key]
	if !ok {
		st = &staged[Service]{}
		db.services[key] = st
	}
	if st.observe(s) {
		db.servicesStable[key] = s
	}
}

// Service returns the stable service record for sid, if present.
func (db *Database) Service(sid uint32) (Service, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	s, ok := db.servicesStable[serviceKey(sid)]
	return s, ok
}

// Services returns a snapshot of every stable service record.
func (db *Database) Services() []Service {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]Service, 0, len(db.servicesStable))
	for _, s := range db.servicesStable {
		out = append(out, s)
	}
	return out
}

// UpdateComponent stages a newly decoded service-component record (FIG
// 0/2 or FIG 0/8).
func (db *Database) UpdateComponent(c ServiceComponent) {
	db.mu.Lock()
	defer db.mu.Unlock()
	key := componentKey{ServiceID: c.ServiceID, SCIdS: c.SCIdS}
	st, ok := db.components[key]
	if !ok {
		st = &staged[ServiceComponent]{}
		db.components[key] = st
	}
	if st.observe(c) {
		db.componentsStable[key] = c
	}
}

// ComponentsForService returns every stable service component belonging
// to sid.
func (db *Database) ComponentsForService(sid uint32) []ServiceComponent {
	db.mu.RLock()
	defer db.mu.RUnlock()
	var out []ServiceComponent
	for k, c := range db.componentsStable {
		if k.ServiceID == sid {
			out = append(out, c)
		}
	}
	return out
}

// AddUserApplication records or updates a FIG 0/13 user application
// association, keyed on (ServiceID, SCIdS, AppType); these are applied
// directly rather than through the staged promotion path since they are
// small, low-churn signalling records typically repeated identically for
// the ensemble's lifetime.
func (db *Database) AddUserApplication(ua UserApplication) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for i, existing := range db.userApps {
		if existing.ServiceID == ua.ServiceID && existing.SCIdS == ua.SCIdS && existing.AppType == ua.AppType {
			db.userApps[i] = ua
			return
		}
	}
	db.userApps = append(db.userApps, ua)
}

// UserApplications returns a snapshot of every recorded user application.
func (db *Database) UserApplications() []UserApplication {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return append([]UserApplication(nil), db.userApps...)
}

// UpdateUserApplicationLabel applies a FIG 1/6 X-PAD user application
// label to a previously (or not yet) recorded FIG 0/13 entry, applied
// directly like AddUserApplication rather than through staged promotion.
func (db *Database) UpdateUserApplicationLabel(sid uint32, scids uint8, appType uint16, label, short string) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for i, existing := range db.userApps {
		if existing.ServiceID == sid && existing.SCIdS == scids && existing.AppType == appType {
			db.userApps[i].Label = label
			db.userApps[i].ShortLabel = short
			return
		}
	}
	db.userApps = append(db.userApps, UserApplication{ServiceID: sid, SCIdS: scids, AppType: appType, Label: label, ShortLabel: short})
}

// UpdateComponentLabel applies a FIG 1/4 service component label,
// applied directly like AddUserApplication since labels are low-churn.
func (db *Database) UpdateComponentLabel(sid uint32, scids uint8, label, short string) {
	db.mu.Lock()
	defer db.mu.Unlock()
	key := componentKey{ServiceID: sid, SCIdS: scids}
	c, ok := db.componentsStable[key]
	if !ok {
		c = ServiceComponent{ServiceID: sid, SCIdS: scids}
	}
	c.Label = label
	c.ShortLabel = short
	db.componentsStable[key] = c
}

// UpdatePacketComponent records or updates a FIG 0/3 packet-mode
// component record, keyed by its ensemble-wide SCId.
func (db *Database) UpdatePacketComponent(pc PacketComponent) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.packetComponents[pc.SCId] = pc
}

// PacketComponent returns the stable FIG 0/3 record for scid, if present.
func (db *Database) PacketComponent(scid uint16) (PacketComponent, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	pc, ok := db.packetComponents[scid]
	return pc, ok
}

// AddConditionalAccess records a FIG 0/4 conditional-access declaration.
func (db *Database) AddConditionalAccess(ca ConditionalAccess) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for i, existing := range db.caRecords {
		if existing.ServiceID == ca.ServiceID && existing.SCIdS == ca.SCIdS {
			db.caRecords[i] = ca
			return
		}
	}
	db.caRecords = append(db.caRecords, ca)
}

// ConditionalAccessRecords returns a snapshot of every recorded FIG 0/4
// entry.
func (db *Database) ConditionalAccessRecords() []ConditionalAccess {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return append([]ConditionalAccess(nil), db.caRecords...)
}

// UpdateOtherEnsembleService records or updates a FIG 0/24 cross-reference
// from sid to the ensembles it is also carried on.
func (db *Database) UpdateOtherEnsembleService(oe OtherEnsembleService) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.oeServices[oe.ServiceID] = oe
}

// OtherEnsembleService returns the stable FIG 0/24 record for sid, if
// present.
func (db *Database) OtherEnsembleService(sid uint32) (OtherEnsembleService, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	oe, ok := db.oeServices[sid]
	return oe, ok
}

// UpdateDateTime records the ensemble's current UTC date/time from a FIG
// 0/10, applied directly since it changes every second and staged
// promotion would only add latency.
func (db *Database) UpdateDateTime(dt DateTime) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.dateTime = dt
	db.haveDateTime = true
}

// DateTime returns the most recently decoded FIG 0/10 record, if any.
func (db *Database) DateTime() (DateTime, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.dateTime, db.haveDateTime
}
