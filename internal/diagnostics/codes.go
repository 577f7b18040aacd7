package diagnostics

// Code catalogue, per spec.md §4.2–§4.5 and §7. Grouped by the stage that
// raises them; codes not explicitly numbered by the spec (lexical, syntax,
// casing, name-resolution, general type errors) get a stable E1xx/E2xx/E3xx
// band of our own so every diagnostic in the repo has exactly one code.
const (
	// Lexical (E1xx)
	ELexIllegalChar    = "E100"
	ELexBadIndent      = "E101"
	ELexUnterminated   = "E102"
	ELexBadRegex       = "E103"
	ELexBadNumber      = "E104"

	// Syntax (E2xx)
	ESyntaxUnexpectedToken = "E200"
	ESyntaxMissingFrom     = "E201"
	ESyntaxBadAnnotation   = "E202"

	// Casing (E25x)
	ECasingDeclSite = "E250"

	// Name resolution (E3xx general band)
	EResUnknownIdent  = "E300"
	EResDuplicateCtor = "E301"
	EResUnknownModule = "E302"
	EResAmbiguousCall = "E303"
	EResDuplicateFunc = "E304" // non-IO duplicate identity; IO pairs use E365

	// Type checking (E35x)
	ETypeUnify           = "E350"
	ETypeNonExhaustive   = "E351"
	ETypeRefinement      = "E352"
	ETypeArity           = "E353"
	ETypeImmutableAssign = "E354"
	EIdentityDuplicate   = "E365" // verb-dispatched identity collision, spec.md §3 invariants

	// Verb enforcement (spec.md §4.4, exact codes)
	EValidatesReturnType = "E360"
	EFailMarkerMisuse    = "E361"
	EPureCallsIO         = "E362"
	EPureCallsEffectful  = "E363"
	ELambdaCapture       = "E364"
	ERecursionNoMeasure  = "E366"

	// Contracts / proof (spec.md §4.5, exact codes)
	EExplainRowCount  = "E390"
	EExplainDuplicate = "E391"
	EProofUnknownRef  = "E392"
	EBelieveNoEnsures = "E393"
	EExplainUnknownOp = "E394"
	EKnowUnprovable   = "E395"

	WNearMissRedundant   = "W322"
	WProofNoConceptRef   = "W321"
	WUnreachableMatchArm = "W323"
	WIncompatibleClaim   = "W324"
	WChainGap            = "W325"
	WTrustedUnused       = "W326"

	// Internal (fatal, aborts the driver)
	EInternalIO = "E900"
)
