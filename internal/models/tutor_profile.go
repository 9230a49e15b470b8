package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Subject string

const (
	SubjectMatematicas   Subject = "MATEMATICAS"
	SubjectAlgebra       Subject = "ALGEBRA"
	SubjectCalculo       Subject = "CALCULO"
	SubjectFisica        Subject = "FISICA"
	SubjectQuimica       Subject = "QUIMICA"
	SubjectBiologia      Subject = "BIOLOGIA"
	SubjectIngles        Subject = "INGLES"
	SubjectEspanol       Subject = "ESPANOL"
	SubjectHistoria      Subject = "HISTORIA"
	SubjectGeografia     Subject = "GEOGRAFIA"
	SubjectProgramacion  Subject = "PROGRAMACION"
	SubjectCienciasComp  Subject = "CIENCIAS_COMPUTACION"
	SubjectEconomia      Subject = "ECONOMIA"
	SubjectContabilidad  Subject = "CONTABILIDAD"
	SubjectEstadistica   Subject = "ESTADISTICA"
	SubjectOtro          Subject = "OTRO"
)

// SubjectLabels maps stored enum values to display names (Spanish).
var SubjectLabels = map[Subject]string{
	SubjectMatematicas:  "Matemáticas",
	SubjectAlgebra:      "Álgebra",
	SubjectCalculo:      "Cálculo",
	SubjectFisica:       "Física",
	SubjectQuimica:      "Química",
	SubjectBiologia:     "Biología",
	SubjectIngles:       "Inglés",
	SubjectEspanol:      "Español",
	SubjectHistoria:     "Historia",
	SubjectGeografia:    "Geografía",
	SubjectProgramacion: "Programación",
	SubjectCienciasComp: "Ciencias de la Computación",
	SubjectEconomia:     "Economía",
	SubjectContabilidad: "Contabilidad",
	SubjectEstadistica:  "Estadística",
	SubjectOtro:         "Otro",
}

func (s Subject) Valid() bool {
	_, ok := SubjectLabels[s]
	return ok
}

func (s Subject) Label() string {
	if l, ok := SubjectLabels[s]; ok {
		return l
	}
	return string(s)
}

type GradeLevel string

const (
	GradePrimaria     GradeLevel = "PRIMARIA"
	GradeSecundaria   GradeLevel = "SECUNDARIA"
	GradePreparatoria GradeLevel = "PREPARATORIA"
	GradeUniversidad  GradeLevel = "UNIVERSIDAD"
	GradePosgrado     GradeLevel = "POSGRADO"
	GradeProfesional  GradeLevel = "PROFESIONAL"
)

var GradeLevelLabels = map[GradeLevel]string{
	GradePrimaria:     "Primaria",
	GradeSecundaria:   "Secundaria",
	GradePreparatoria: "Preparatoria",
	GradeUniversidad:  "Universidad",
	GradePosgrado:     "Posgrado",
	GradeProfesional:  "Profesional",
}

func (g GradeLevel) Valid() bool {
	_, ok := GradeLevelLabels[g]
	return ok
}

type TutorProfile struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`

	Subjects    datatypes.JSONSlice[Subject]    `json:"subjects"`
	GradeLevels datatypes.JSONSlice[GradeLevel] `json:"grade_levels"`

	Bio            string `gorm:"type:text" json:"bio"`
	Education      string `gorm:"type:varchar(200)" json:"education"`
	Experience     string `gorm:"type:varchar(200)" json:"experience"`
	SchedulingLink string `gorm:"type:text" json:"scheduling_link"`

	Rating            float64 `gorm:"default:5.0" json:"rating"`
	CompletedSessions int     `gorm:"default:0" json:"completed_sessions"`

	IsActive   bool `gorm:"default:true" json:"is_active"`
	IsVerified bool `gorm:"default:false" json:"is_verified"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID;references:ID" json:"user,omitempty"`
}

// HasSubject reports whether the profile covers the given subject.
func (p *TutorProfile) HasSubject(s Subject) bool {
	for _, v := range p.Subjects {
		if v == s {
			return true
		}
	}
	return false
}

// HasGradeLevel reports whether the profile covers the given grade level.
func (p *TutorProfile) HasGradeLevel(g GradeLevel) bool {
	for _, v := range p.GradeLevels {
		if v == g {
			return true
		}
	}
	return false
}
