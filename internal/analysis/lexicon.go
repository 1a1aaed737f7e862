package analysis

import "regexp"

// LexiconVersion identifies the dictionaries below. Bump it whenever a table
// changes so persisted analysis runs can be told apart.
const LexiconVersion = "2024.1"

// Priority weights.
const (
	OverdueBoost          = 25.0
	DueSoonBoost          = 15.0
	ReminderBoost         = 10.0
	UrgentCategoryBoost   = 15.0
	PreferenceWeight      = 25.0
	AvoidancePenalty      = 20.0
	AmbitionWeight        = 15.0
	MomentumThreshold     = 0.6
	MomentumWeight        = 10.0
	ManageableWords       = 10
	ManageableBoost       = 15.0
	UnmanageableBoost     = 5.0
	UnlockWeight          = 3.0
	UnlockCap             = 25.0
	StaleAgeDays          = 7.0
	StaleBoost            = 5.0
	TinyPenalty           = 5.0
	CompletedPenalty      = 100.0
	WorkHoursBoost        = 5.0
	WorkHourStart         = 9
	WorkHourEnd           = 18
	ComplexityTitleLength = 200.0
	DueSoonHours          = 24.0
)

// Bucket and focus gates.
const (
	MustThreshold   = 20.0
	ShouldThreshold = 5.0
	FocusThreshold  = 20.0
)

// Domino thresholds.
const (
	DefaultDominoPool      = 50
	BlockerConfidence      = 0.9
	PrerequisiteConfidence = 0.8
	JaccardThreshold       = 0.4
	SameCategoryConfidence = 0.5
	MinKeywordLength       = 3
)

// Forecast limits.
const (
	ForecastDays          = 14
	TaskCountWeight       = 5
	TaskCountCap          = 40
	DeadlineWeight        = 10
	DeadlineCap           = 30
	RecurrenceWeight      = 5
	RecurrenceCap         = 20
	ClusterFreeCategories = 3
	ClusterWeight         = 5
	ClusterCap            = 10
	LoadCap               = 100
	StormThreshold        = 60
)

// Burnout thresholds.
const (
	BurnoutWindowDays     = 7
	LowCompletionRate     = 0.3
	LowCompletionPoints   = 20
	OverdueLimit          = 5
	OverduePoints         = 15
	BacklogLimit          = 20
	BacklogPoints         = 10
	NegativeJournalShare  = 0.5
	NegativeJournalPoints = 25
	HighLoadTasks         = 30
	LowReflectionEntries  = 3
	HighLoadPoints        = 15
	HighRiskScore         = 50
	MediumRiskScore       = 25
)

// Pattern and journal limits.
const (
	PeakHourCount        = 3
	MinRecurringTitleLen = 5
	ThemeCount           = 5
	MinThemeWordLen      = 4
)

// Burnout factor labels. These are user-facing and must stay stable.
const (
	FactorLowCompletion   = "low completion rate"
	FactorManyOverdue     = "many overdue tasks"
	FactorInboxBacklog    = "large inbox backlog"
	FactorNegativeJournal = "negative journal sentiment"
	FactorHighLoad        = "high load, low reflection"
)

const UncategorizedLabel = "uncategorized"

var urgentCategories = map[string]bool{
	"urgent":        true,
	"primary_focus": true,
}

// Categories that still need the batch categorizer.
var placeholderCategories = map[string]bool{
	"":              true,
	"inbox":         true,
	"uncategorized": true,
	"none":          true,
	"other":         true,
}

var (
	blockingLanguage = regexp.MustCompile(`\b(after|once|when|following|depends on)\b`)
	positiveWords    = regexp.MustCompile(`\b(happy|grateful|great|good|excited|proud|calm|productive|accomplished|joy|love|loved|motivated|energized|relaxed|hopeful|glad|peaceful|progress)\b`)
	negativeWords    = regexp.MustCompile(`\b(tired|exhausted|stressed|stress|anxious|anxiety|overwhelmed|sad|frustrated|angry|burnt|burned|burnout|worried|drained|hopeless|stuck|lonely|awful|terrible)\b`)
	wordPattern      = regexp.MustCompile(`[a-z][a-z'-]*`)
)

// prerequisiteVerbs is the focus-side verb dictionary.
var prerequisiteVerbs = map[string]bool{
	"create": true, "build": true, "design": true, "develop": true,
	"write": true, "draft": true, "prepare": true, "setup": true,
	"configure": true, "install": true, "research": true, "analyze": true,
	"plan": true,
}

// verbPairs maps a focus verb to the candidate verbs it enables.
var verbPairs = map[string][]string{
	"setup":    {"configure", "use", "run", "test"},
	"create":   {"edit", "update", "modify", "review", "share"},
	"design":   {"implement", "build", "develop"},
	"research": {"decide", "plan", "choose"},
	"write":    {"review", "edit", "publish", "send"},
	"plan":     {"execute", "implement", "start"},
}

// candidateVerbs is every verb recognized on the candidate side.
var candidateVerbs = func() map[string]bool {
	out := make(map[string]bool, len(prerequisiteVerbs))
	for v := range prerequisiteVerbs {
		out[v] = true
	}
	for _, targets := range verbPairs {
		for _, v := range targets {
			out[v] = true
		}
	}
	return out
}()

var dominoStopwords = map[string]bool{
	"the": true, "and": true, "with": true, "from": true, "that": true,
	"this": true, "then": true, "into": true, "for": true, "when": true,
	"once": true, "after": true, "following": true, "depends": true,
	"have": true, "need": true, "some": true, "your": true, "about": true,
	"will": true, "been": true, "before": true, "them": true, "they": true,
	"what": true, "done": true,
}

var themeStopwords = map[string]bool{
	"about": true, "after": true, "again": true, "because": true, "before": true,
	"being": true, "could": true, "doing": true, "every": true, "going": true,
	"having": true, "other": true, "really": true, "should": true, "since": true,
	"their": true, "there": true, "these": true, "thing": true, "things": true,
	"think": true, "those": true, "today": true, "where": true, "which": true,
	"while": true, "would": true, "yesterday": true, "still": true, "though": true,
	"through": true, "without": true, "myself": true, "maybe": true, "tomorrow": true,
	"feeling": true, "always": true, "never": true, "something": true, "everything": true,
}

type categoryRule struct {
	Category string
	Pattern  *regexp.Regexp
}

// categoryRules are tried in order; the first match wins.
var categoryRules = []categoryRule{
	{"work", regexp.MustCompile(`\b(meeting|meetings|email|e-mail|report|client|clients|presentation|boss|office|invoice|colleague|standup|interview|spreadsheet|memo|deadline|manager)\b`)},
	{"home", regexp.MustCompile(`\b(clean|cleaning|laundry|groceries|grocery|dishes|cook|cooking|vacuum|rent|landlord|repair|garden|trash|bills?|kitchen|plumber)\b`)},
	{"gym", regexp.MustCompile(`\b(gym|workout|run|running|yoga|exercise|lift|lifting|cardio|swim|swimming|stretch|training|pilates|squats?)\b`)},
	{"projects", regexp.MustCompile(`\b(project|projects|build|code|coding|design|prototype|app|website|launch|repo|feature|blog)\b`)},
}
