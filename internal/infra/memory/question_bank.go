package memory

import (
	"context"
	"fmt"

	"blurt-quest/internal/domain"
)

// QuestionBank serves level question sets from an in-memory slice.
type QuestionBank struct {
	byLevel map[int][]domain.Question
}

func NewQuestionBank(questions []domain.Question) *QuestionBank {
	byLevel := make(map[int][]domain.Question)
	for _, q := range questions {
		byLevel[q.Level] = append(byLevel[q.Level], q)
	}
	return &QuestionBank{byLevel: byLevel}
}

func (b *QuestionBank) Level(_ context.Context, level int) ([]domain.Question, error) {
	questions, ok := b.byLevel[level]
	if !ok {
		return nil, domain.ErrInvalidLevel
	}
	out := make([]domain.Question, len(questions))
	copy(out, questions)
	return out, nil
}

// DefaultQuestions is the seeded ten-level question bank: three questions per
// level, points rising with difficulty.
func DefaultQuestions() []domain.Question {
	seeds := []struct {
		level    int
		points   int
		category string
		prompt   string
		options  []string
		correct  int
	}{
		// Level 1 - General Knowledge
		{1, 10, "general", "What is the largest planet in our solar system?", []string{"Earth", "Jupiter", "Saturn", "Mars"}, 1},
		{1, 10, "general", "Which element has the chemical symbol 'O'?", []string{"Gold", "Silver", "Oxygen", "Iron"}, 2},
		{1, 10, "general", "What is the capital of France?", []string{"London", "Berlin", "Madrid", "Paris"}, 3},

		// Level 2 - Technology
		{2, 15, "technology", "What does 'HTTP' stand for?", []string{"HyperText Transfer Protocol", "High Tech Transfer Protocol", "Home Tool Transfer Protocol", "Hyper Transfer Text Protocol"}, 0},
		{2, 15, "technology", "Which programming language is known as the 'language of the web'?", []string{"Python", "Java", "JavaScript", "C++"}, 2},
		{2, 15, "technology", "What does 'AI' commonly stand for?", []string{"Automated Intelligence", "Artificial Intelligence", "Advanced Integration", "Application Interface"}, 1},

		// Level 3 - Crypto & Blockchain
		{3, 20, "crypto", "What is the first cryptocurrency?", []string{"Ethereum", "Litecoin", "Bitcoin", "Ripple"}, 2},
		{3, 20, "crypto", "What does 'DeFi' stand for?", []string{"Decentralized Finance", "Digital Finance", "Distributed Finance", "Direct Finance"}, 0},
		{3, 20, "crypto", "What is a blockchain?", []string{"A type of database", "A distributed ledger", "A chain of blocks containing data", "All of the above"}, 3},

		// Level 4 - Blurt Basics
		{4, 25, "blurt", "Blurt is a fork of which blockchain?", []string{"Bitcoin", "Ethereum", "Steem", "Hive"}, 2},
		{4, 25, "blurt", "What is the native token of the Blurt blockchain?", []string{"BLURT", "STEEM", "HIVE", "BTC"}, 0},
		{4, 25, "blurt", "Blurt focuses on which primary activity?", []string{"Gaming", "Social blogging", "DeFi", "NFTs"}, 1},

		// Level 5 - Mixed Advanced
		{5, 30, "crypto", "What is the process of validating transactions on a blockchain called?", []string{"Mining", "Staking", "Consensus", "All of the above"}, 3},
		{5, 30, "technology", "Which of these is NOT a programming paradigm?", []string{"Object-Oriented", "Functional", "Procedural", "Blockchain"}, 3},
		{5, 30, "technology", "What does 'WWW' stand for?", []string{"World Wide Web", "World Wide Wait", "World Wide Width", "World Wide Work"}, 0},

		// Level 6 - Environment & Tech
		{6, 35, "general", "What is the main greenhouse gas responsible for climate change?", []string{"Oxygen", "Nitrogen", "Carbon Dioxide", "Helium"}, 2},
		{6, 35, "general", "Which renewable energy source uses the sun?", []string{"Wind", "Solar", "Hydro", "Geothermal"}, 1},
		{6, 35, "technology", "What does 'IoT' stand for?", []string{"Internet of Things", "Integration of Technology", "Interface of Tools", "Internet of Technology"}, 0},

		// Level 7 - Advanced Crypto
		{7, 40, "crypto", "What is a smart contract?", []string{"A legal document", "Self-executing code on blockchain", "A trading algorithm", "A mining contract"}, 1},
		{7, 40, "crypto", "What is 'HODL' in crypto?", []string{"Hold On for Dear Life", "A typo for 'hold'", "A trading strategy", "All of the above"}, 3},
		{7, 40, "crypto", "What is a private key in cryptocurrency?", []string{"Public address", "Secret key for wallet access", "Transaction ID", "Block hash"}, 1},

		// Level 8 - Blurt Advanced
		{8, 45, "blurt", "What is the block time for Blurt blockchain?", []string{"1 minute", "3 seconds", "10 minutes", "30 seconds"}, 1},
		{8, 45, "blurt", "Blurt allows content creators to earn through?", []string{"Proof of Work", "Proof of Stake", "Proof of Brain", "Proof of Authority"}, 2},
		{8, 45, "blurt", "What makes Blurt different from Steem?", []string{"No downvoting", "Faster blocks", "Different rewards", "All of the above"}, 3},

		// Level 9 - Expert Level
		{9, 50, "crypto", "What is the Byzantine Generals Problem?", []string{"A historical battle", "A consensus problem in distributed systems", "A cryptographic puzzle", "A game theory concept"}, 1},
		{9, 50, "blurt", "Which consensus mechanism does Blurt use?", []string{"Proof of Work", "Proof of Stake", "Delegated Proof of Stake", "Proof of Authority"}, 2},
		{9, 50, "crypto", "What is sharding in blockchain?", []string{"Breaking chains", "Splitting network into smaller pieces", "Creating forks", "Mining technique"}, 1},

		// Level 10 - Master Level
		{10, 100, "crypto", "What is the trilemma in blockchain?", []string{"Speed, Cost, Security", "Scalability, Security, Decentralization", "Privacy, Speed, Cost", "Consensus, Mining, Staking"}, 1},
		{10, 100, "blurt", "Who can become a witness on Blurt?", []string{"Only developers", "Anyone with enough votes", "Only founders", "Only miners"}, 1},
		{10, 100, "crypto", "What is the ultimate goal of blockchain technology?", []string{"Make money", "Decentralization and trustlessness", "Replace banks", "Create cryptocurrencies"}, 1},
	}

	questions := make([]domain.Question, 0, len(seeds))
	counts := make(map[int]int)
	for _, seed := range seeds {
		counts[seed.level]++
		questions = append(questions, domain.Question{
			ID:            fmt.Sprintf("l%d-q%d", seed.level, counts[seed.level]),
			Level:         seed.level,
			Prompt:        seed.prompt,
			Options:       seed.options,
			CorrectAnswer: seed.correct,
			Points:        seed.points,
			Category:      seed.category,
		})
	}
	return questions
}
