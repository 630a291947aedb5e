package entity

// Area is an organizational unit whose members are evaluated together
type Area struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// PersonRef identifies a person in the roster
type PersonRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Roster role tags
const (
	RoleSubject    = "SUBJECT"
	RoleSupervisor = "SUPERVISOR"
	RolePeer       = "PEER"
)

// Roster is the active membership of one area split by functional role. The
// three slices are disjoint.
type Roster struct {
	AreaID      int64       `json:"area_id"`
	Subjects    []PersonRef `json:"subjects"`
	Supervisors []PersonRef `json:"supervisors"`
	Peers       []PersonRef `json:"peers"`
}

// Size returns the number of distinct people in the roster
func (r *Roster) Size() int {
	return len(r.Subjects) + len(r.Supervisors) + len(r.Peers)
}

// Criterion groups sub-criteria rated for one evaluation type
type Criterion struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Position    int            `json:"position"`
	SubCriteria []SubCriterion `json:"subcriteria"`
}

// SubCriterion is the smallest rated unit
type SubCriterion struct {
	ID          int64   `json:"id"`
	CriterionID int64   `json:"criterion_id"`
	Name        string  `json:"name"`
	Weight      float64 `json:"weight"`
	Position    int     `json:"position"`
}
