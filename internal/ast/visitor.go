package ast

// Visitor is the single dispatch point every AST node's Accept method
// calls into (spec.md §9 "Visitor-style traversal is a single dispatch on
// that discriminator"). BaseVisitor gives callers that only care about a
// handful of node kinds a no-op default for the rest.
type Visitor interface {
	VisitModule(*Module)
	VisitImport(*Import)

	VisitFunctionDef(*FunctionDef)
	VisitMainDef(*MainDef)
	VisitTypeDef(*TypeDef)
	VisitConstantDef(*ConstantDef)
	VisitForeignBlock(*ForeignBlock)
	VisitInvariantNetwork(*InvariantNetwork)

	VisitRequiresAnnotation(*RequiresAnnotation)
	VisitEnsuresAnnotation(*EnsuresAnnotation)
	VisitTerminatesAnnotation(*TerminatesAnnotation)
	VisitTrustedAnnotation(*TrustedAnnotation)
	VisitKnowAnnotation(*KnowAnnotation)
	VisitAssumeAnnotation(*AssumeAnnotation)
	VisitBelieveAnnotation(*BelieveAnnotation)
	VisitWhyNotAnnotation(*WhyNotAnnotation)
	VisitChosenAnnotation(*ChosenAnnotation)
	VisitNearMissAnnotation(*NearMissAnnotation)
	VisitSatisfiesAnnotation(*SatisfiesAnnotation)
	VisitIntentAnnotation(*IntentAnnotation)
	VisitExplainAnnotation(*ExplainAnnotation)
	VisitProofAnnotation(*ProofAnnotation)

	VisitSimpleType(*SimpleType)
	VisitGenericType(*GenericType)
	VisitModifiedType(*ModifiedType)
	VisitRefinement(*Refinement)
	VisitAlgebraic(*Algebraic)
	VisitRecord(*Record)

	VisitIntegerLiteral(*IntegerLiteral)
	VisitDecimalLiteral(*DecimalLiteral)
	VisitBooleanLiteral(*BooleanLiteral)
	VisitStringLiteral(*StringLiteral)
	VisitRegexLiteral(*RegexLiteral)
	VisitIdentifier(*Identifier)
	VisitTypeIdentifier(*TypeIdentifier)
	VisitCall(*Call)
	VisitField(*Field)
	VisitPipe(*Pipe)
	VisitFailProp(*FailProp)
	VisitLambda(*Lambda)
	VisitValid(*Valid)
	VisitMatch(*Match)
	VisitIf(*If)
	VisitBinaryOp(*BinaryOp)
	VisitUnaryOp(*UnaryOp)
	VisitParenthesized(*Parenthesized)
	VisitListLiteral(*ListLiteral)
	VisitRange(*Range)

	VisitVariantPattern(*VariantPattern)
	VisitWildcardPattern(*WildcardPattern)
	VisitLiteralPattern(*LiteralPattern)
	VisitBindingPattern(*BindingPattern)

	VisitVarDecl(*VarDecl)
	VisitAssignment(*Assignment)
	VisitExprStmt(*ExprStmt)
	VisitBody(*Body)
}

// BaseVisitor implements every Visitor method as a no-op so embedders only
// override what they need.
type BaseVisitor struct{}

func (BaseVisitor) VisitModule(*Module)     {}
func (BaseVisitor) VisitImport(*Import)     {}
func (BaseVisitor) VisitFunctionDef(*FunctionDef)           {}
func (BaseVisitor) VisitMainDef(*MainDef)                   {}
func (BaseVisitor) VisitTypeDef(*TypeDef)                   {}
func (BaseVisitor) VisitConstantDef(*ConstantDef)           {}
func (BaseVisitor) VisitForeignBlock(*ForeignBlock)         {}
func (BaseVisitor) VisitInvariantNetwork(*InvariantNetwork) {}
func (BaseVisitor) VisitRequiresAnnotation(*RequiresAnnotation)     {}
func (BaseVisitor) VisitEnsuresAnnotation(*EnsuresAnnotation)       {}
func (BaseVisitor) VisitTerminatesAnnotation(*TerminatesAnnotation) {}
func (BaseVisitor) VisitTrustedAnnotation(*TrustedAnnotation)       {}
func (BaseVisitor) VisitKnowAnnotation(*KnowAnnotation)             {}
func (BaseVisitor) VisitAssumeAnnotation(*AssumeAnnotation)         {}
func (BaseVisitor) VisitBelieveAnnotation(*BelieveAnnotation)       {}
func (BaseVisitor) VisitWhyNotAnnotation(*WhyNotAnnotation)         {}
func (BaseVisitor) VisitChosenAnnotation(*ChosenAnnotation)         {}
func (BaseVisitor) VisitNearMissAnnotation(*NearMissAnnotation)     {}
func (BaseVisitor) VisitSatisfiesAnnotation(*SatisfiesAnnotation)   {}
func (BaseVisitor) VisitIntentAnnotation(*IntentAnnotation)         {}
func (BaseVisitor) VisitExplainAnnotation(*ExplainAnnotation)       {}
func (BaseVisitor) VisitProofAnnotation(*ProofAnnotation)           {}
func (BaseVisitor) VisitSimpleType(*SimpleType)     {}
func (BaseVisitor) VisitGenericType(*GenericType)   {}
func (BaseVisitor) VisitModifiedType(*ModifiedType) {}
func (BaseVisitor) VisitRefinement(*Refinement)     {}
func (BaseVisitor) VisitAlgebraic(*Algebraic)       {}
func (BaseVisitor) VisitRecord(*Record)             {}
func (BaseVisitor) VisitIntegerLiteral(*IntegerLiteral) {}
func (BaseVisitor) VisitDecimalLiteral(*DecimalLiteral) {}
func (BaseVisitor) VisitBooleanLiteral(*BooleanLiteral) {}
func (BaseVisitor) VisitStringLiteral(*StringLiteral)   {}
func (BaseVisitor) VisitRegexLiteral(*RegexLiteral)     {}
func (BaseVisitor) VisitIdentifier(*Identifier)         {}
func (BaseVisitor) VisitTypeIdentifier(*TypeIdentifier) {}
func (BaseVisitor) VisitCall(*Call)                     {}
func (BaseVisitor) VisitField(*Field)                   {}
func (BaseVisitor) VisitPipe(*Pipe)                     {}
func (BaseVisitor) VisitFailProp(*FailProp)             {}
func (BaseVisitor) VisitLambda(*Lambda)                 {}
func (BaseVisitor) VisitValid(*Valid)                   {}
func (BaseVisitor) VisitMatch(*Match)                   {}
func (BaseVisitor) VisitIf(*If)                         {}
func (BaseVisitor) VisitBinaryOp(*BinaryOp)             {}
func (BaseVisitor) VisitUnaryOp(*UnaryOp)               {}
func (BaseVisitor) VisitParenthesized(*Parenthesized)   {}
func (BaseVisitor) VisitListLiteral(*ListLiteral)       {}
func (BaseVisitor) VisitRange(*Range)                   {}
func (BaseVisitor) VisitVariantPattern(*VariantPattern) {}
func (BaseVisitor) VisitWildcardPattern(*WildcardPattern) {}
func (BaseVisitor) VisitLiteralPattern(*LiteralPattern)   {}
func (BaseVisitor) VisitBindingPattern(*BindingPattern)   {}
func (BaseVisitor) VisitVarDecl(*VarDecl)         {}
func (BaseVisitor) VisitAssignment(*Assignment)   {}
func (BaseVisitor) VisitExprStmt(*ExprStmt)       {}
func (BaseVisitor) VisitBody(*Body)               {}
