package profile

import "fmt"

// Stage is a student's enrollment stage. Stages are totally ordered, see Rank.
type Stage string

const (
	StageSubscribed        Stage = "suscrito"
	StageDocumentsComplete Stage = "documentos_completos"
	StageRegistryValidated Stage = "registro_validado"
	StageUniversityProcess Stage = "proceso_universitario"
	StageEnrolled          Stage = "matriculado"
	StageClassesStarted    Stage = "inicio_clases"
	StageActiveStudent     Stage = "estudiante_activo"
	StagePaymentsUpToDate  Stage = "pagos_al_dia"
	StageProcessFinished   Stage = "proceso_finalizado"
)

// MinDocumentsForComplete is the number of uploaded documents required to reach StageDocumentsComplete.
const MinDocumentsForComplete = 3

// Stages lists every stage in rank order.
var Stages = []Stage{
	StageSubscribed,
	StageDocumentsComplete,
	StageRegistryValidated,
	StageUniversityProcess,
	StageEnrolled,
	StageClassesStarted,
	StageActiveStudent,
	StagePaymentsUpToDate,
	StageProcessFinished,
}

var (
	stageRanks = func() map[Stage]int {
		ranks := make(map[Stage]int, len(Stages))
		for i, s := range Stages {
			ranks[s] = i
		}
		return ranks
	}()

	stageLabels = map[Stage]string{
		StageSubscribed:        "Suscrito",
		StageDocumentsComplete: "Documentos completos",
		StageRegistryValidated: "Registro validado",
		StageUniversityProcess: "Proceso universitario",
		StageEnrolled:          "Matriculado",
		StageClassesStarted:    "Inicio de clases",
		StageActiveStudent:     "Estudiante activo",
		StagePaymentsUpToDate:  "Pagos al día",
		StageProcessFinished:   "Proceso finalizado",
	}
)

// Rank returns the position of s in the stage order, or -1 for an unknown stage.
func (s Stage) Rank() int {
	if r, ok := stageRanks[s]; ok {
		return r
	}
	return -1
}

func (s Stage) IsValid() bool { return s.Rank() >= 0 }

// Label is the human readable name of s.
func (s Stage) Label() string {
	if l, ok := stageLabels[s]; ok {
		return l
	}
	return string(s)
}

// Transition rule names.
const (
	RuleMaxRegression     = "max_regression"
	RuleMinDocuments      = "min_documents"
	RuleNoPendingRequests = "no_pending_requests"
)

// Transition is a proposed stage change with the counts its rules depend on.
type Transition struct {
	Current              Stage
	Next                 Stage
	DocumentsCount       int
	PendingRequestsCount int
}

// RuleFailure describes one failed transition rule.
type RuleFailure struct {
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// CheckTransition returns every rule the transition breaks. An empty result means it is allowed.
//
// Only one step back is allowed. Forward moves may skip stages, and the document and request
// gates apply only when the target is exactly documentos_completos or matriculado.
func CheckTransition(t Transition) []RuleFailure {
	var failures []RuleFailure

	if t.Next.Rank() < t.Current.Rank()-1 {
		failures = append(failures, RuleFailure{
			Rule: RuleMaxRegression,
			Message: fmt.Sprintf(
				"cannot move back from %s to %s: at most one stage back is allowed",
				t.Current, t.Next,
			),
		})
	}
	if t.Next == StageDocumentsComplete && t.DocumentsCount < MinDocumentsForComplete {
		failures = append(failures, RuleFailure{
			Rule: RuleMinDocuments,
			Message: fmt.Sprintf(
				"documentsCount < %d: the student has %d document(s)",
				MinDocumentsForComplete, t.DocumentsCount,
			),
		})
	}
	if t.Next == StageEnrolled && t.PendingRequestsCount > 0 {
		failures = append(failures, RuleFailure{
			Rule: RuleNoPendingRequests,
			Message: fmt.Sprintf(
				"pendingRequestsCount > 0: the student has %d open request(s)",
				t.PendingRequestsCount,
			),
		})
	}
	return failures
}
