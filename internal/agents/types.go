// Package agents provides the agent record, the job and kingdom enumerations,
// the growable agent store and the spawning paths that fill it.
package agents

// Job is an agent's occupation. The zero value means unemployed.
type Job uint8

const (
	JobNone Job = iota
	JobFarmer
	JobButcher
	JobLumberjack
	JobMiner
	JobBlacksmith
	JobSwordsman
	JobArcher
	JobCavalry
	JobRebel
)

// NumJobs is the number of job codes including JobNone.
const NumJobs = 10

var jobNames = [NumJobs]string{
	"unemployed", "farmer", "butcher", "lumberjack", "miner",
	"blacksmith", "swordsman", "archer", "cavalry", "rebel",
}

func (j Job) String() string {
	if !j.Valid() {
		return "unknown"
	}
	return jobNames[j]
}

// Valid reports whether j is a known job code.
func (j Job) Valid() bool { return j < NumJobs }

// IsCivilian reports whether j is one of the five producing jobs.
func (j Job) IsCivilian() bool { return j >= JobFarmer && j <= JobBlacksmith }

// IsSoldier reports whether j is one of the three imperial military jobs.
func (j Job) IsSoldier() bool { return j >= JobSwordsman && j <= JobCavalry }

// SoldierJobs lists the military specializations in a fixed order.
var SoldierJobs = [3]Job{JobSwordsman, JobArcher, JobCavalry}

// CivilianJobs lists the producing jobs in code order.
var CivilianJobs = [5]Job{JobFarmer, JobButcher, JobLumberjack, JobMiner, JobBlacksmith}

// KingdomID indexes the fixed kingdom roster.
type KingdomID uint8

const (
	// EmpireID is the kingdom every agent belongs to before the collapse.
	EmpireID KingdomID = 0
	// NumKingdoms is the roster size: the empire plus seven successors.
	NumKingdoms = 8
)

// Valid reports whether k indexes the roster.
func (k KingdomID) Valid() bool { return k < NumKingdoms }

// IsSuccessor reports whether k is one of the seven successor states.
func (k KingdomID) IsSuccessor() bool { return k > EmpireID && k < NumKingdoms }

// Stats is an agent's stat block.
type Stats struct {
	Health    int `json:"health"`
	Hunger    int `json:"hunger"` // satiety; eating raises it, work lowers it
	Speed     int `json:"speed"`
	Damage    int `json:"damage"`
	Defense   int `json:"defense"`
	Intellect int `json:"intellect"`
}

// Slot names an equipment position.
type Slot uint8

const (
	SlotHead Slot = iota
	SlotTorso
	SlotLegs
	SlotFeet
	SlotRightHand
	SlotLeftHand
	NumSlots
)

// Equipment holds one item code per slot; 0 is empty.
type Equipment [NumSlots]uint8

// NumQuirks is the number of cosmetic quirk flags per agent.
const NumQuirks = 3

// Agent is one simulated human. Agents carry no persistent identity; their
// position in the Store is the only handle and it changes on compaction.
type Agent struct {
	Name      string          `json:"name"`
	Stats     Stats           `json:"stats"`
	Job       Job             `json:"job"`
	Kingdom   KingdomID       `json:"kingdom"`
	Bronze    int             `json:"bronze"`
	IsLeader  bool            `json:"is_leader"` // general for soldiers, rebel leader for rebels
	Quirks    [NumQuirks]bool `json:"quirks"`
	Equipment Equipment       `json:"equipment"`
	Alive     bool            `json:"alive"`
}

// Kill marks the agent dead and clears its job.
func (a *Agent) Kill() {
	a.Alive = false
	a.Job = JobNone
	a.IsLeader = false
}

// QuirkMask packs the quirk flags into bits.
func (a *Agent) QuirkMask() int {
	m := 0
	for i, q := range a.Quirks {
		if q {
			m |= 1 << i
		}
	}
	return m
}

// SetQuirkMask unpacks bits written by QuirkMask.
func (a *Agent) SetQuirkMask(m int) {
	for i := range a.Quirks {
		a.Quirks[i] = m&(1<<i) != 0
	}
}
