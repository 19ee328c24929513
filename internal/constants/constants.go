package constants

// Lambda functions running the grader
const (
	// DevFunctionARN is the development grader, the default publish target
	DevFunctionARN = "arn:aws:lambda:us-east-1:114056409474:function:Mobius_edx_Grader_DEV"

	// MainFunctionARN is the production grader used by the live course
	MainFunctionARN = "arn:aws:lambda:us-east-1:114056409474:function:Mobius_edx_Grader"

	// DefaultRegion is the region both grader functions live in
	DefaultRegion = "us-east-1"
)

// Local filesystem layout, relative to the working directory
const (
	OutputDir       = "dist"
	ArchivePath     = "zipped_file/zip_grader.zip"
	MetadataFile    = "package.json"
	CredentialsFile = ".amazon_key.yaml"
	ConfigFile      = "deploy.yaml"
)

// Compiler invocation
const (
	CompilerCommand = "tsc"
	ProjectFlag     = "-p"
)
