package staging

import (
	"primerid/api/models/constants"
	"primerid/api/models/constants/pipeline"
)

const MaxSequenceBytes int64 = 16000000

// Policy decides which checks a pipeline's staged files go through.
type Policy struct {
	// Extensions approved for upload, without the leading dot ("fastq.gz").
	Extensions []string

	// r1/r2 pairing (TCS/DR, Splicing)
	PairedReads bool
	// `{subject}_{sample}` naming and sanitized names (OGV)
	Subjects bool
	// sequence names must carry a WPI token (OGV)
	RequireWPI bool
	// contents are parsed as FASTA (Intactness, Coreceptor)
	Sequences bool
	// compressed files are refused outright
	RejectCompressed bool
	// cumulative cap across the session, 0 for none
	MaxTotalBytes int64
	// files with errors still let the user continue
	ContinueWithErrors bool
}

func PolicyFor(p constants.Pipeline) Policy {
	switch p {
	case pipeline.TCSDR:
		return Policy{
			Extensions:  []string{"fastq", "fastq.gz"},
			PairedReads: true,
		}
	case pipeline.Splicing:
		return Policy{
			Extensions:  []string{"fastq", "fastq.gz", "fasta"},
			PairedReads: true,
		}
	case pipeline.OGV:
		return Policy{
			Extensions: []string{"fasta"},
			Subjects:   true,
			RequireWPI: true,
		}
	case pipeline.Intactness:
		return Policy{
			Extensions:       []string{"fasta", "fa", "fastq", "txt"},
			Sequences:        true,
			RejectCompressed: true,
			MaxTotalBytes:    MaxSequenceBytes,
		}
	case pipeline.Coreceptor:
		return Policy{
			Extensions:         []string{"fa", "fasta", "txt"},
			Sequences:          true,
			RejectCompressed:   true,
			MaxTotalBytes:      MaxSequenceBytes,
			ContinueWithErrors: true,
		}
	default:
		return Policy{}
	}
}
